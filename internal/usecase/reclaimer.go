package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-reading/internal/core/domain"
	"github.com/arklim/social-platform-reading/internal/core/port"
)

// ReclaimerConfig tunes the periodic stuck-session sweep.
type ReclaimerConfig struct {
	StuckThreshold time.Duration
	BatchSize      int
}

func (c ReclaimerConfig) withDefaults() ReclaimerConfig {
	if c.StuckThreshold <= 0 {
		c.StuckThreshold = 24 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

// ReclaimedSession describes one session the sweep terminated.
type ReclaimedSession struct {
	SessionID     string
	UserID        string
	ActiveMinutes int
}

// SweepResult summarizes one pass over stuck sessions.
type SweepResult struct {
	Scanned   int
	Reclaimed []ReclaimedSession
	Failed    int
}

// Reclaimer terminates sessions whose owners disappeared without ending
// them. Each candidate is processed in its own transaction that re-reads the
// session and re-checks the threshold, so a sweep racing with the owner's
// End, or with another sweep, settles every session exactly once.
type Reclaimer struct {
	tx       port.Transactor
	sessions port.SessionRepository
	events   port.EventPublisher
	metrics  MetricsRecorder
	logger   *zap.Logger
	cfg      ReclaimerConfig
	now      func() time.Time
}

// NewReclaimer constructs the sweep worker. The sessions repository is the
// pool-backed instance used only to list candidates.
func NewReclaimer(tx port.Transactor, sessions port.SessionRepository, events port.EventPublisher, cfg ReclaimerConfig, logger *zap.Logger) *Reclaimer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reclaimer{
		tx:       tx,
		sessions: sessions,
		events:   events,
		logger:   logger,
		cfg:      cfg.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (r *Reclaimer) WithClock(clock func() time.Time) *Reclaimer {
	if clock != nil {
		r.now = clock
	}
	return r
}

// WithMetrics injects the counter sink.
func (r *Reclaimer) WithMetrics(metrics MetricsRecorder) *Reclaimer {
	r.metrics = metrics
	return r
}

// Sweep finds live sessions older than the threshold and reclaims them one
// by one. A failure on one session is logged and counted; the rest of the
// batch still runs.
func (r *Reclaimer) Sweep(ctx context.Context) (*SweepResult, error) {
	now := r.now()
	cutoff := now.Add(-r.cfg.StuckThreshold)

	candidates, err := r.sessions.ListStuck(ctx, cutoff, r.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list stuck sessions: %w", err)
	}

	result := &SweepResult{Scanned: len(candidates)}
	for _, candidate := range candidates {
		reclaimed, err := r.reclaimOne(ctx, candidate.ID, now)
		if err != nil {
			result.Failed++
			r.logger.Error("reclaim failed",
				zap.String("session_id", candidate.ID),
				zap.String("user_id", candidate.UserID),
				zap.Error(err),
			)
			continue
		}
		if reclaimed != nil {
			result.Reclaimed = append(result.Reclaimed, *reclaimed)
		}
	}

	if r.metrics != nil {
		if len(result.Reclaimed) > 0 {
			r.metrics.SessionsReclaimed(len(result.Reclaimed))
		}
		if result.Failed > 0 {
			r.metrics.SweepFailures(result.Failed)
		}
	}

	if len(result.Reclaimed) > 0 || result.Failed > 0 {
		r.logger.Info("stuck session sweep finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("reclaimed", len(result.Reclaimed)),
			zap.Int("failed", result.Failed),
		)
	}

	return result, nil
}

// reclaimOne re-reads the candidate inside a transaction and terminates it
// only if it is still live and still past the threshold. A session that was
// ended or refreshed in the meantime is skipped without error.
func (r *Reclaimer) reclaimOne(ctx context.Context, sessionID string, now time.Time) (*ReclaimedSession, error) {
	var (
		reclaimed *ReclaimedSession
		event     domain.SessionReclaimedEvent
	)

	err := r.tx.RunSerializable(ctx, func(ctx context.Context, stores port.Stores) error {
		reclaimed = nil

		session, err := fetchSession(ctx, stores, sessionID)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return nil
			}
			return err
		}
		if !session.Abandoned(now, r.cfg.StuckThreshold) {
			return nil
		}

		event, err = reclaimSession(ctx, stores, session, now, domain.SchedulerActorID)
		if err != nil {
			return err
		}
		reclaimed = &ReclaimedSession{
			SessionID:     session.ID,
			UserID:        session.UserID,
			ActiveMinutes: event.ActiveMinutes,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if reclaimed != nil && r.events != nil {
		if err := r.events.PublishSessionReclaimed(ctx, event); err != nil {
			r.logger.Warn("publish session reclaimed failed",
				zap.String("session_id", reclaimed.SessionID),
				zap.Error(err),
			)
		}
	}

	return reclaimed, nil
}
