package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-ledger-api/internal/service"
)

// MetricsHandler exposes the Prometheus scrape endpoint.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler constructs a new MetricsHandler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Handle serves the metrics payload.
func (h *MetricsHandler) Handle(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
