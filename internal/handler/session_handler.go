package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-ledger-api/internal/service"
	appErrors "github.com/noah-isme/course-ledger-api/pkg/errors"
	"github.com/noah-isme/course-ledger-api/pkg/response"
)

// SessionHandler wires the session scheduler to HTTP routes.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler constructs a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// ReconcileSessionsRequest is the desired full session list of a course.
type ReconcileSessionsRequest struct {
	Sessions []service.SessionEdit `json:"sessions"`
}

// Reconcile godoc
// @Summary Reconcile a course's session list
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body ReconcileSessionsRequest true "Desired session list"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/sessions [put]
func (h *SessionHandler) Reconcile(c *gin.Context) {
	var req ReconcileSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	sessions, err := h.sessions.Reconcile(c.Request.Context(), c.Param("id"), req.Sessions, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// List godoc
// @Summary List a course's sessions in sequence order
// @Tags Sessions
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}
