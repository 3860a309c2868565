package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-reading/internal/core/domain"
	"github.com/arklim/social-platform-reading/internal/usecase"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// SessionPayload describes a reading session in API responses.
type SessionPayload struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Status            string     `json:"status"`
	StartedAt         time.Time  `json:"started_at"`
	LastResumedAt     *time.Time `json:"last_resumed_at,omitempty"`
	LastPausedAt      *time.Time `json:"last_paused_at,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	ActiveMillis      int64      `json:"active_ms"`
	ActiveMinutes     int        `json:"active_minutes"`
	TerminationReason string     `json:"termination_reason,omitempty"`
}

// SessionResponse wraps a single session.
type SessionResponse struct {
	Session SessionPayload `json:"session"`
}

// SessionEndResponse summarises a completed session.
type SessionEndResponse struct {
	Session       SessionPayload `json:"session"`
	TotalActiveMS int64          `json:"total_active_ms"`
	ActiveMinutes int            `json:"active_minutes"`
	PointsAwarded int            `json:"points_awarded"`
	AlreadyEnded  bool           `json:"already_ended,omitempty"`
}

// ActiveSessionResponse reports the caller's current live session, if any.
type ActiveSessionResponse struct {
	Active  bool            `json:"active"`
	Session *SessionPayload `json:"session,omitempty"`
}

// SessionListResponse wraps a list of sessions.
type SessionListResponse struct {
	Sessions []SessionPayload `json:"sessions"`
	Total    int              `json:"total"`
}

// ForceEndRequest carries the administrative termination payload.
type ForceEndRequest struct {
	Reason string `json:"reason"`
}

// SweepResponse summarises a manually triggered reclamation pass.
type SweepResponse struct {
	Scanned   int      `json:"scanned"`
	Reclaimed int      `json:"reclaimed"`
	Failed    int      `json:"failed,omitempty"`
	Sessions  []string `json:"session_ids,omitempty"`
}

// LeaderboardEntryPayload is one row of the points ranking.
type LeaderboardEntryPayload struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Points int    `json:"points"`
}

// LeaderboardResponse wraps the points ranking.
type LeaderboardResponse struct {
	Entries []LeaderboardEntryPayload `json:"entries"`
	Total   int                       `json:"total"`
}

// AuditEntryPayload describes an audit log record.
type AuditEntryPayload struct {
	ID              string         `json:"id"`
	ActorID         string         `json:"actor_id"`
	Action          string         `json:"action"`
	TargetUserID    string         `json:"target_user_id,omitempty"`
	TargetSessionID string         `json:"target_session_id,omitempty"`
	Reason          string         `json:"reason,omitempty"`
	At              time.Time      `json:"at"`
	Details         map[string]any `json:"details,omitempty"`
}

// AuditListResponse wraps audit log records.
type AuditListResponse struct {
	Entries []AuditEntryPayload `json:"entries"`
	Total   int                 `json:"total"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newSessionPayload converts a domain session to an API session payload.
func newSessionPayload(session domain.Session, at time.Time) SessionPayload {
	return SessionPayload{
		ID:                session.ID,
		UserID:            session.UserID,
		Status:            string(session.Status),
		StartedAt:         session.StartedAt,
		LastResumedAt:     session.LastResumedAt,
		LastPausedAt:      session.LastPausedAt,
		EndedAt:           session.EndedAt,
		ActiveMillis:      session.ActiveMillis(at),
		ActiveMinutes:     session.ActiveMinutes(at),
		TerminationReason: string(session.TerminationReason),
	}
}

// newEndResponse converts a termination result to an API payload.
func newEndResponse(result *usecase.EndResult, at time.Time) SessionEndResponse {
	return SessionEndResponse{
		Session:       newSessionPayload(result.Session, at),
		TotalActiveMS: result.TotalActiveMillis,
		ActiveMinutes: result.ActiveMinutes,
		PointsAwarded: result.PointsAwarded,
		AlreadyEnded:  result.AlreadyEnded,
	}
}

// newAuditPayload converts a domain audit entry to an API payload.
func newAuditPayload(entry domain.AuditEntry) AuditEntryPayload {
	return AuditEntryPayload{
		ID:              entry.ID,
		ActorID:         entry.ActorID,
		Action:          entry.Action,
		TargetUserID:    entry.TargetUserID,
		TargetSessionID: entry.TargetSessionID,
		Reason:          entry.Reason,
		At:              entry.At,
		Details:         entry.Details,
	}
}
