package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secuteam/gwm-api/internal/service"
	"github.com/secuteam/gwm-api/pkg/response"
)

// ReportHandler streams staffing and attendance exports.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Staffing godoc
// @Summary Export the staffing roster of an event
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Event ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/reports/staffing [get]
func (h *ReportHandler) Staffing(c *gin.Context) {
	report, err := h.reports.StaffingReport(c.Request.Context(), c.Param("id"), reportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	streamReport(c, report)
}

// Attendance godoc
// @Summary Export the attendance sheet of an event
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Event ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/reports/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	report, err := h.reports.AttendanceReport(c.Request.Context(), c.Param("id"), reportFormat(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	streamReport(c, report)
}

// Download godoc
// @Summary Download an archived report
// @Description Serve an archived export through its signed token
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	report, err := h.reports.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	streamReport(c, report)
}

func reportFormat(c *gin.Context) service.ReportFormat {
	if c.Query("format") == "pdf" {
		return service.ReportFormatPDF
	}
	return service.ReportFormatCSV
}

func streamReport(c *gin.Context, report *service.Report) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	if report.DownloadToken != "" {
		c.Header("X-Download-Token", report.DownloadToken)
	}
	c.Data(http.StatusOK, report.ContentType, report.Content)
}
