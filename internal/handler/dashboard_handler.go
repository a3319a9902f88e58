package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secuteam/gwm-api/internal/middleware"
	"github.com/secuteam/gwm-api/internal/service"
	"github.com/secuteam/gwm-api/pkg/response"
)

// DashboardHandler serves aggregated staffing dashboards.
type DashboardHandler struct {
	dashboard *service.DashboardService
	metrics   *service.MetricsService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(dashboard *service.DashboardService, metrics *service.MetricsService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, metrics: metrics}
}

// Overview godoc
// @Summary Global staffing overview
// @Description Event counts per effective status, cached for a short TTL
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/overview [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	overview, err := h.dashboard.GetOverview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recordCacheHit(c, overview.FromCache)
	response.JSON(c, http.StatusOK, overview, nil, middleware.ExtractMeta(c))
}

// EventBoard godoc
// @Summary Staffing board of one event
// @Description Assignment, attendance and zone aggregates for one event
// @Tags Dashboard
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dashboard/events/{id} [get]
func (h *DashboardHandler) EventBoard(c *gin.Context) {
	board, err := h.dashboard.GetEventBoard(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recordCacheHit(c, board.FromCache)
	response.JSON(c, http.StatusOK, board, nil, middleware.ExtractMeta(c))
}

// Invalidate godoc
// @Summary Drop cached dashboards
// @Tags Dashboard
// @Produce json
// @Success 204 {object} response.Envelope
// @Router /dashboard/cache [delete]
func (h *DashboardHandler) Invalidate(c *gin.Context) {
	h.dashboard.Invalidate(c.Request.Context())
	response.NoContent(c)
}

func (h *DashboardHandler) recordCacheHit(c *gin.Context, hit bool) {
	middleware.SetCacheHit(c, hit)
	h.metrics.RecordCacheOperation(hit)
}
