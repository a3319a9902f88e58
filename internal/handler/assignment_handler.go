package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secuteam/gwm-api/internal/models"
	"github.com/secuteam/gwm-api/internal/service"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
	"github.com/secuteam/gwm-api/pkg/response"
)

// AssignmentHandler wires HTTP endpoints to the assignment lifecycle service.
type AssignmentHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentHandler creates a new handler.
func NewAssignmentHandler(assignments *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// Request godoc
// @Summary Request an assignment
// @Description Bind an agent to an event (optionally a zone). Soft-deleted rows are restored, resolved rows are reassigned, active rows conflict.
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.RequestAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RequestAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	req.RequestedBy = claims.UserID

	result, err := h.assignments.Request(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusCreated
	if result.Outcome != models.AssignmentOutcomeCreated {
		status = http.StatusOK
	}
	response.JSON(c, status, result, nil)
}

// Respond godoc
// @Summary Respond to an assignment
// @Description The assigned agent confirms or declines a pending assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body map[string]string true "Response payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id}/respond [post]
func (h *AssignmentHandler) Respond(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Response string `json:"response" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "response required"))
		return
	}

	assignment, err := h.assignments.Respond(c.Request.Context(), c.Param("id"), claims.UserID, models.AssignmentStatus(payload.Response))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignment, nil)
}

// BulkConfirm godoc
// @Summary Bulk confirm assignments of an event
// @Description Confirm all pending assignments of an event, filtered by role
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.BulkConfirmRequest true "Bulk confirm payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/assignments/bulk-confirm [post]
func (h *AssignmentHandler) BulkConfirm(c *gin.Context) {
	var req service.BulkConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk confirm payload"))
		return
	}
	req.EventID = c.Param("id")

	result, err := h.assignments.BulkConfirmByEvent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete an assignment
// @Description Soft delete an assignment. The detach_supervisor flag controls zone roster cleanup for supervisor assignments.
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Param detach_supervisor query bool false "Remove the supervisor from the zone roster"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var detach *bool
	if raw, ok := c.GetQuery("detach_supervisor"); ok {
		value := raw == "true" || raw == "1"
		detach = &value
	}

	if err := h.assignments.Delete(c.Request.Context(), c.Param("id"), claims.UserID, detach); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListByEvent godoc
// @Summary List assignments of an event
// @Tags Assignments
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/assignments [get]
func (h *AssignmentHandler) ListByEvent(c *gin.Context) {
	assignments, err := h.assignments.ListByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// ListByAgent godoc
// @Summary List assignments of an agent
// @Tags Assignments
// @Produce json
// @Param id path string true "Agent ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /agents/{id}/assignments [get]
func (h *AssignmentHandler) ListByAgent(c *gin.Context) {
	assignments, err := h.assignments.ListByAgent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}
