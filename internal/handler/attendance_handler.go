package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secuteam/gwm-api/internal/service"
	appErrors "github.com/secuteam/gwm-api/pkg/errors"
	"github.com/secuteam/gwm-api/pkg/response"
)

// AttendanceHandler wires HTTP endpoints to the attendance service.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

type attendancePayload struct {
	Notes *string `json:"notes"`
}

// CheckIn godoc
// @Summary Check in on an assignment
// @Description The assigned agent checks in on a confirmed assignment inside the event window
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body attendancePayload false "Optional notes"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id}/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload attendancePayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	record, err := h.attendance.CheckIn(c.Request.Context(), c.Param("id"), claims.UserID, payload.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, record)
}

// CheckOut godoc
// @Summary Check out of an assignment
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body attendancePayload false "Optional notes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id}/check-out [post]
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload attendancePayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	record, err := h.attendance.CheckOut(c.Request.Context(), c.Param("id"), claims.UserID, payload.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// ListByEvent godoc
// @Summary List attendance records of an event
// @Tags Attendance
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/attendance [get]
func (h *AttendanceHandler) ListByEvent(c *gin.Context) {
	records, err := h.attendance.ListByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Summary godoc
// @Summary Attendance summary of an event
// @Description Expected headcount, checked-in count and attendance rate
// @Tags Attendance
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/attendance/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summary, err := h.attendance.SummaryByEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
