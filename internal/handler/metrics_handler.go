package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secuteam/gwm-api/internal/service"
	"github.com/secuteam/gwm-api/pkg/response"
)

// MetricsHandler exposes Prometheus metrics and a JSON snapshot.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler creates a new handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Prometheus returns the Prometheus scrape endpoint.
func (h *MetricsHandler) Prometheus() gin.HandlerFunc {
	return gin.WrapH(h.metrics.Handler())
}

// Snapshot godoc
// @Summary System metrics snapshot
// @Description Aggregated request, cache and runtime counters
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /metrics/snapshot [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
