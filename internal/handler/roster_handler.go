package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-ledger-api/internal/service"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
	"github.com/noah-isme/course-ledger-api/pkg/response"
)

// RosterHandler wires the roster reconciler to HTTP routes.
type RosterHandler struct {
	rosters     *service.RosterService
	enrollments *service.EnrollmentService
}

// NewRosterHandler constructs a new RosterHandler.
func NewRosterHandler(rosters *service.RosterService, enrollments *service.EnrollmentService) *RosterHandler {
	return &RosterHandler{rosters: rosters, enrollments: enrollments}
}

// ApplyRosterRequest is the desired full membership of a course.
type ApplyRosterRequest struct {
	StudentIDs []string `json:"student_ids"`
}

// Apply godoc
// @Summary Reconcile a course roster
// @Tags Rosters
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body ApplyRosterRequest true "Desired student set"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/roster [put]
func (h *RosterHandler) Apply(c *gin.Context) {
	var req ApplyRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid roster payload"))
		return
	}
	result, err := h.rosters.Apply(c.Request.Context(), c.Param("id"), req.StudentIDs, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List a course's enrollment intervals
// @Tags Rosters
// @Produce json
// @Param id path string true "Course ID"
// @Param active query bool false "Only currently active memberships"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/roster [get]
func (h *RosterHandler) List(c *gin.Context) {
	activeOnly := strings.EqualFold(c.Query("active"), "true")
	enrollments, err := h.enrollments.ListByCourse(c.Request.Context(), c.Param("id"), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}
