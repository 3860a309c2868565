package domain

import "time"

// Audit actions recorded for automatic or administrative terminations.
const (
	AuditActionForceEnd = "force_end_session"
	AuditActionReclaim  = "reclaim_stuck_session"
)

// SchedulerActorID identifies terminations performed by the reclaimer rather
// than a human actor.
const SchedulerActorID = "scheduler"

// AuditEntry is an append-only record of a termination that did not come from
// the session's owner. Entries are written in the same transaction as the
// state change they document and are never mutated.
type AuditEntry struct {
	ID              string
	ActorID         string
	Action          string
	TargetUserID    string
	TargetSessionID string
	Reason          string
	At              time.Time
	Details         map[string]any
}
