package domain

import "time"

// SessionStartedEvent is emitted after a session is created and committed.
type SessionStartedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	StartedAt time.Time
	Metadata  map[string]any
}

// SessionEndedEvent is emitted after any termination commits, regardless of
// who or what triggered it.
type SessionEndedEvent struct {
	EventID           string
	SessionID         string
	UserID            string
	EndedAt           time.Time
	TotalActiveMillis int64
	ActiveMinutes     int
	PointsAwarded     int
	Reason            TerminationReason
	EndedBy           string
	Metadata          map[string]any
}

// SessionReclaimedEvent is emitted for each session the stuck-session sweep
// terminates.
type SessionReclaimedEvent struct {
	EventID       string
	SessionID     string
	UserID        string
	ReclaimedAt   time.Time
	ActiveMinutes int
	SessionAge    time.Duration
	Metadata      map[string]any
}

// PointsAwardedEvent is emitted when a completed session crosses the reward
// threshold.
type PointsAwardedEvent struct {
	EventID   string
	UserID    string
	SessionID string
	Points    int
	AwardedAt time.Time
	Metadata  map[string]any
}

// AccountPaidEvent is emitted when a payment confirmation flips the gate.
type AccountPaidEvent struct {
	EventID   string
	UserID    string
	Reference string
	PaidAt    time.Time
	Metadata  map[string]any
}
