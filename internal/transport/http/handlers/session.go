package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-reading/internal/core/domain"
	"github.com/arklim/social-platform-reading/internal/repository"
	"github.com/arklim/social-platform-reading/internal/transport/http/middleware"
	"github.com/arklim/social-platform-reading/internal/usecase"
)

// SessionHandler exposes the reading session lifecycle endpoints.
type SessionHandler struct {
	lifecycle *usecase.LifecycleService
	clock     func() time.Time
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(lifecycle *usecase.LifecycleService) *SessionHandler {
	return &SessionHandler{
		lifecycle: lifecycle,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source used when rendering live sessions.
func (h *SessionHandler) WithClock(clock func() time.Time) *SessionHandler {
	if clock != nil {
		h.clock = clock
	}
	return h
}

// RegisterRoutes binds the session lifecycle routes to the provided router group.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.POST("", h.StartSession)
	r.GET("/active", h.GetActiveSession)
	r.POST("/:session_id/pause", h.PauseSession)
	r.POST("/:session_id/resume", h.ResumeSession)
	r.POST("/:session_id/end", h.EndSession)
}

// StartSession opens a new reading session for the authenticated user.
// Abandoned sessions left behind by the same user are reclaimed first.
func (h *SessionHandler) StartSession(c *gin.Context) {
	if h.lifecycle == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "session service unavailable"))
		return
	}

	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	session, err := h.lifecycle.Start(c.Request.Context(), userID)
	if err != nil {
		cases := []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrPaymentRequired, Status: http.StatusPaymentRequired, Message: "payment required before starting a session"},
			{Err: usecase.ErrSessionAlreadyActive, Status: http.StatusConflict, Message: "an active session already exists"},
			{Err: repository.ErrSerializationFailure, Status: http.StatusServiceUnavailable, Message: "conflicting requests, please retry"},
		}
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to start session")
		return
	}

	c.JSON(http.StatusCreated, SessionResponse{Session: newSessionPayload(*session, h.clock())})
}

// PauseSession stops the active-time clock of a running session.
func (h *SessionHandler) PauseSession(c *gin.Context) {
	h.applyTransition(c, h.lifecycle.Pause, "failed to pause session")
}

// ResumeSession restarts the active-time clock of a paused session.
func (h *SessionHandler) ResumeSession(c *gin.Context) {
	h.applyTransition(c, h.lifecycle.Resume, "failed to resume session")
}

func (h *SessionHandler) applyTransition(c *gin.Context, apply func(ctx context.Context, sessionID, callerID string) (*domain.Session, error), fallback string) {
	if h.lifecycle == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "session service unavailable"))
		return
	}

	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "session_id is required"))
		return
	}

	session, err := apply(c.Request.Context(), sessionID, userID)
	if err != nil {
		RespondWithMappedError(c, err, sessionErrorCases(), http.StatusInternalServerError, fallback)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{Session: newSessionPayload(*session, h.clock())})
}

// EndSession terminates the caller's session and settles its accounting.
// Ending an already ended session returns the frozen totals unchanged.
func (h *SessionHandler) EndSession(c *gin.Context) {
	if h.lifecycle == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "session service unavailable"))
		return
	}

	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "session_id is required"))
		return
	}

	result, err := h.lifecycle.End(c.Request.Context(), sessionID, userID)
	if err != nil {
		RespondWithMappedError(c, err, sessionErrorCases(), http.StatusInternalServerError, "failed to end session")
		return
	}

	c.JSON(http.StatusOK, newEndResponse(result, h.clock()))
}

// GetActiveSession returns the caller's live session, if one exists.
func (h *SessionHandler) GetActiveSession(c *gin.Context) {
	if h.lifecycle == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "session service unavailable"))
		return
	}

	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	session, err := h.lifecycle.GetActive(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to look up active session")
		return
	}

	if session == nil {
		c.JSON(http.StatusOK, ActiveSessionResponse{Active: false})
		return
	}

	payload := newSessionPayload(*session, h.clock())
	c.JSON(http.StatusOK, ActiveSessionResponse{Active: true, Session: &payload})
}

func sessionErrorCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "session not found"},
		{Err: usecase.ErrSessionForbidden, Status: http.StatusForbidden, Message: "session not owned by user"},
		{Err: usecase.ErrInvalidState, Status: http.StatusConflict, Message: "session is not in a state that allows this transition"},
		{Err: repository.ErrSerializationFailure, Status: http.StatusServiceUnavailable, Message: "conflicting requests, please retry"},
	}
}
