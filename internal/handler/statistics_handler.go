package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-ledger-api/internal/models"
	"github.com/noah-isme/course-ledger-api/internal/service"
	"github.com/noah-isme/course-ledger-api/pkg/response"
)

// StatisticsHandler wires the statistics engine to HTTP routes.
type StatisticsHandler struct {
	statistics *service.StatisticsService
}

// NewStatisticsHandler constructs a new StatisticsHandler.
func NewStatisticsHandler(statistics *service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statistics: statistics}
}

func statisticsParams(c *gin.Context) (models.StatisticsMode, string, models.StatisticsView) {
	mode := models.StatisticsMode(c.DefaultQuery("mode", string(models.StatisticsMonthly)))
	view := models.StatisticsView(c.DefaultQuery("view", string(models.ViewByTeacher)))
	return mode, c.Query("month"), view
}

// Hours godoc
// @Summary Taught minutes ranked by teacher or subject
// @Tags Statistics
// @Produce json
// @Param mode query string false "monthly or cumulative"
// @Param month query string false "Month as YYYY-MM (monthly mode)"
// @Param view query string false "teacher or subject"
// @Success 200 {object} response.Envelope
// @Router /statistics/hours [get]
func (h *StatisticsHandler) Hours(c *gin.Context) {
	mode, month, view := statisticsParams(c)
	entries, err := h.statistics.Hours(c.Request.Context(), mode, month, view)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Enrollments godoc
// @Summary Distinct enrolled students ranked by teacher or subject
// @Tags Statistics
// @Produce json
// @Param mode query string false "monthly or cumulative"
// @Param month query string false "Month as YYYY-MM (monthly mode)"
// @Param view query string false "teacher or subject"
// @Success 200 {object} response.Envelope
// @Router /statistics/enrollments [get]
func (h *StatisticsHandler) Enrollments(c *gin.Context) {
	mode, month, view := statisticsParams(c)
	entries, err := h.statistics.Enrollments(c.Request.Context(), mode, month, view)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Retention godoc
// @Summary Month-over-month retention ranked by teacher or subject
// @Tags Statistics
// @Produce json
// @Param month query string true "Month as YYYY-MM"
// @Param view query string false "teacher or subject"
// @Success 200 {object} response.Envelope
// @Router /statistics/retention [get]
func (h *StatisticsHandler) Retention(c *gin.Context) {
	view := models.StatisticsView(c.DefaultQuery("view", string(models.ViewByTeacher)))
	entries, err := h.statistics.Retention(c.Request.Context(), c.Query("month"), view)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
