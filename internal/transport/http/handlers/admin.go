package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-reading/internal/repository"
	"github.com/arklim/social-platform-reading/internal/transport/http/middleware"
	"github.com/arklim/social-platform-reading/internal/usecase"
)

// AdminHandler exposes the administrative surface: live session inventory,
// forced termination, on-demand reclamation sweeps and the audit log.
type AdminHandler struct {
	admin     *usecase.AdminService
	lifecycle *usecase.LifecycleService
	reclaimer *usecase.Reclaimer
	clock     func() time.Time
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(admin *usecase.AdminService, lifecycle *usecase.LifecycleService, reclaimer *usecase.Reclaimer) *AdminHandler {
	return &AdminHandler{
		admin:     admin,
		lifecycle: lifecycle,
		reclaimer: reclaimer,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source used when rendering live sessions.
func (h *AdminHandler) WithClock(clock func() time.Time) *AdminHandler {
	if clock != nil {
		h.clock = clock
	}
	return h
}

// RegisterRoutes binds admin routes to the provided router group. The group
// is expected to carry both RequireAuth and RequireAdmin middleware.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("/sessions", h.ListLiveSessions)
	r.POST("/sessions/:session_id/force-end", h.ForceEndSession)
	r.POST("/sweep", h.TriggerSweep)
	r.GET("/audit", h.ListAuditEntries)
}

// ListLiveSessions returns every session currently counting against the
// one-live-session allowance, oldest first.
func (h *AdminHandler) ListLiveSessions(c *gin.Context) {
	if h.admin == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "admin service unavailable"))
		return
	}

	callerID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || callerID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	limit, ok := parseLimit(c, 0)
	if !ok {
		return
	}

	sessions, err := h.admin.ListLiveSessions(c.Request.Context(), callerID, limit)
	if err != nil {
		RespondWithMappedError(c, err, adminErrorCases(), http.StatusInternalServerError, "failed to list sessions")
		return
	}

	now := h.clock()
	payload := make([]SessionPayload, 0, len(sessions))
	for _, session := range sessions {
		payload = append(payload, newSessionPayload(session, now))
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: payload, Total: len(payload)})
}

// ForceEndSession terminates any user's session with an audit trail entry.
func (h *AdminHandler) ForceEndSession(c *gin.Context) {
	if h.lifecycle == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "session service unavailable"))
		return
	}

	callerID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || callerID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "session_id is required"))
		return
	}

	var req ForceEndRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "malformed request body"))
		return
	}

	result, err := h.lifecycle.ForceEnd(c.Request.Context(), sessionID, callerID, strings.TrimSpace(req.Reason))
	if err != nil {
		cases := append(adminErrorCases(),
			ErrorCase{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "session not found"},
			ErrorCase{Err: repository.ErrSerializationFailure, Status: http.StatusServiceUnavailable, Message: "conflicting requests, please retry"},
		)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "failed to force-end session")
		return
	}

	c.JSON(http.StatusOK, newEndResponse(result, h.clock()))
}

// TriggerSweep runs one reclamation pass immediately instead of waiting for
// the scheduler tick.
func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	if h.reclaimer == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "reclaimer unavailable"))
		return
	}

	result, err := h.reclaimer.Sweep(c.Request.Context())
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "sweep failed")
		return
	}

	sessionIDs := make([]string, 0, len(result.Reclaimed))
	for _, reclaimed := range result.Reclaimed {
		sessionIDs = append(sessionIDs, reclaimed.SessionID)
	}

	c.JSON(http.StatusOK, SweepResponse{
		Scanned:   result.Scanned,
		Reclaimed: len(result.Reclaimed),
		Failed:    result.Failed,
		Sessions:  sessionIDs,
	})
}

// ListAuditEntries returns recent administrative actions, newest first.
func (h *AdminHandler) ListAuditEntries(c *gin.Context) {
	if h.admin == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "admin service unavailable"))
		return
	}

	callerID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok || callerID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	limit, ok := parseLimit(c, 0)
	if !ok {
		return
	}

	entries, err := h.admin.ListAuditEntries(c.Request.Context(), callerID, limit)
	if err != nil {
		RespondWithMappedError(c, err, adminErrorCases(), http.StatusInternalServerError, "failed to list audit entries")
		return
	}

	payload := make([]AuditEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payload = append(payload, newAuditPayload(entry))
	}

	c.JSON(http.StatusOK, AuditListResponse{Entries: payload, Total: len(payload)})
}

func parseLimit(c *gin.Context, fallback int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "limit must be a positive integer"))
		return 0, false
	}
	return limit, true
}

func adminErrorCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrAdminRequired, Status: http.StatusForbidden, Message: "admin privileges required"},
	}
}
