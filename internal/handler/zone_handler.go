package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secuteam/gwm-api/internal/service"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
	"github.com/secuteam/gwm-api/pkg/response"
)

// ZoneHandler wires HTTP endpoints to the zone services.
type ZoneHandler struct {
	zones       *service.ZoneService
	supervisors *service.ZoneSupervisorService
}

// NewZoneHandler creates a new handler.
func NewZoneHandler(zones *service.ZoneService, supervisors *service.ZoneSupervisorService) *ZoneHandler {
	return &ZoneHandler{zones: zones, supervisors: supervisors}
}

// ListByEvent godoc
// @Summary List zones of an event
// @Tags Zones
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/zones [get]
func (h *ZoneHandler) ListByEvent(c *gin.Context) {
	zones, err := h.zones.ListByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, zones, nil)
}

// Get godoc
// @Summary Get zone
// @Tags Zones
// @Produce json
// @Param id path string true "Zone ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /zones/{id} [get]
func (h *ZoneHandler) Get(c *gin.Context) {
	zone, err := h.zones.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, zone, nil)
}

// Create godoc
// @Summary Create zone
// @Tags Zones
// @Accept json
// @Produce json
// @Param payload body service.CreateZoneRequest true "Zone payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /zones [post]
func (h *ZoneHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid zone payload"))
		return
	}

	zone, err := h.zones.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, zone)
}

// Update godoc
// @Summary Update zone
// @Tags Zones
// @Accept json
// @Produce json
// @Param id path string true "Zone ID"
// @Param payload body service.UpdateZoneRequest true "Zone payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /zones/{id} [put]
func (h *ZoneHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid zone payload"))
		return
	}

	zone, err := h.zones.Update(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, zone, nil)
}

// Delete godoc
// @Summary Delete zone
// @Description Delete a zone without active assignments
// @Tags Zones
// @Produce json
// @Param id path string true "Zone ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /zones/{id} [delete]
func (h *ZoneHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.zones.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddSupervisor godoc
// @Summary Add supervisor to zone roster
// @Description Idempotently add a supervisor to the zone's supervisor set
// @Tags Zones
// @Accept json
// @Produce json
// @Param id path string true "Zone ID"
// @Param payload body map[string]string true "Supervisor payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /zones/{id}/supervisors [post]
func (h *ZoneHandler) AddSupervisor(c *gin.Context) {
	var payload struct {
		SupervisorID string `json:"supervisor_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "supervisor_id required"))
		return
	}

	outcome, supervisors, err := h.supervisors.Add(c.Request.Context(), payload.SupervisorID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"outcome": outcome, "supervisors": supervisors}, nil)
}

// RemoveSupervisor godoc
// @Summary Remove supervisor from zone roster
// @Description Idempotently remove a supervisor from the zone's supervisor set
// @Tags Zones
// @Produce json
// @Param id path string true "Zone ID"
// @Param supervisorId path string true "Supervisor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /zones/{id}/supervisors/{supervisorId} [delete]
func (h *ZoneHandler) RemoveSupervisor(c *gin.Context) {
	outcome, supervisors, err := h.supervisors.Remove(c.Request.Context(), c.Param("supervisorId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"outcome": outcome, "supervisors": supervisors}, nil)
}
