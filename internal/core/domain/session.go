package domain

import "time"

// SessionStatus enumerates the lifecycle states of a reading session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionPaused SessionStatus = "paused"
	SessionEnded  SessionStatus = "ended"
)

// TerminationReason records why a session reached the ended state.
type TerminationReason string

const (
	TerminationNone         TerminationReason = ""
	TerminationUserEnded    TerminationReason = "user_ended"
	TerminationStuckCleanup TerminationReason = "auto_stuck_cleanup"
	TerminationAdminForced  TerminationReason = "admin_force_end"
)

// Session represents one timed reading attempt owned by a single user.
// Sessions are keyed by their own identifier rather than the owner's so the
// full history survives; "the current session for a user" is always derived
// by querying live statuses.
type Session struct {
	ID                string
	UserID            string
	Status            SessionStatus
	StartedAt         time.Time
	LastResumedAt     *time.Time
	LastPausedAt      *time.Time
	PausedAccumMillis int64
	EndedAt           *time.Time
	TotalActiveMillis int64
	TerminationReason TerminationReason
}

// IsLive reports whether the session still counts against the owner's
// one-live-session allowance.
func (s Session) IsLive() bool {
	return s.Status == SessionActive || s.Status == SessionPaused
}

// Abandoned reports whether a live session is old enough to be reclaimed.
func (s Session) Abandoned(at time.Time, threshold time.Duration) bool {
	return s.IsLive() && at.Sub(s.StartedAt) >= threshold
}

// ActiveMillis returns the active (non-paused) time accrued by the session.
// Ended sessions return the frozen total; live sessions derive it from the
// elapsed wall clock, the paused-time accumulator, and the moment the current
// pause began. Every lifecycle transition and the reclaimer must account time
// through this single formula.
func (s Session) ActiveMillis(at time.Time) int64 {
	if s.Status == SessionEnded {
		return s.TotalActiveMillis
	}

	elapsed := at.Sub(s.StartedAt).Milliseconds()
	paused := s.PausedAccumMillis
	if s.Status == SessionPaused && s.LastPausedAt != nil {
		paused += at.Sub(*s.LastPausedAt).Milliseconds()
	}

	if active := elapsed - paused; active > 0 {
		return active
	}
	return 0
}

// ActiveMinutes returns whole active minutes accrued so far.
func (s Session) ActiveMinutes(at time.Time) int {
	return int(s.ActiveMillis(at) / 60000)
}

// Pause freezes the session by remembering when the pause began. The paused
// accumulator is only advanced at the next resume or termination.
// Returns false when the session is not active.
func (s *Session) Pause(at time.Time) bool {
	if s.Status != SessionActive {
		return false
	}
	pausedAt := at
	s.Status = SessionPaused
	s.LastPausedAt = &pausedAt
	return true
}

// Resume folds the just-finished pause interval into the accumulator and
// reactivates the session. The interval is derived from the stored pause
// timestamp, never from a caller-supplied value.
// Returns false when the session is not paused.
func (s *Session) Resume(at time.Time) bool {
	if s.Status != SessionPaused {
		return false
	}
	if s.LastPausedAt != nil {
		if interval := at.Sub(*s.LastPausedAt).Milliseconds(); interval > 0 {
			s.PausedAccumMillis += interval
		}
	}
	resumedAt := at
	s.Status = SessionActive
	s.LastResumedAt = &resumedAt
	s.LastPausedAt = nil
	return true
}

// End terminates the session, freezing its total active time exactly once.
// Returns false when the session has already ended, leaving it untouched.
func (s *Session) End(at time.Time, reason TerminationReason) bool {
	if s.Status == SessionEnded {
		return false
	}
	total := s.ActiveMillis(at)
	endedAt := at
	s.TotalActiveMillis = total
	s.Status = SessionEnded
	s.EndedAt = &endedAt
	s.TerminationReason = reason
	s.LastPausedAt = nil
	return true
}
