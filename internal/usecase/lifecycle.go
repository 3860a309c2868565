package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-reading/internal/core/domain"
	"github.com/arklim/social-platform-reading/internal/core/port"
	"github.com/arklim/social-platform-reading/internal/repository"
)

var (
	// ErrAccountNotFound indicates the caller has no provisioned account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrPaymentRequired indicates the account has not paid for access.
	ErrPaymentRequired = errors.New("payment required to start sessions")
	// ErrSessionAlreadyActive indicates the user already owns a live session.
	ErrSessionAlreadyActive = errors.New("an active session already exists")
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionForbidden indicates the session is not owned by the caller.
	ErrSessionForbidden = errors.New("session not owned by user")
	// ErrInvalidState indicates the session cannot make the requested transition.
	ErrInvalidState = errors.New("session is not in a state allowing this transition")
	// ErrAdminRequired indicates the caller lacks admin privileges.
	ErrAdminRequired = errors.New("admin privileges required")
)

// LifecycleConfig tunes session accounting and rewards.
type LifecycleConfig struct {
	StuckThreshold         time.Duration
	RewardThresholdMinutes int
	PointsPerReward        int
}

func (c LifecycleConfig) withDefaults() LifecycleConfig {
	if c.StuckThreshold <= 0 {
		c.StuckThreshold = 24 * time.Hour
	}
	if c.RewardThresholdMinutes <= 0 {
		c.RewardThresholdMinutes = 60
	}
	if c.PointsPerReward <= 0 {
		c.PointsPerReward = 5
	}
	return c
}

// MetricsRecorder receives lifecycle counters. Implementations must be safe
// for concurrent use.
type MetricsRecorder interface {
	SessionStarted()
	SessionEnded(reason string)
	SessionsReclaimed(count int)
	PointsAwarded(points int)
	SweepFailures(count int)
}

// EndResult reports the outcome of a session termination.
type EndResult struct {
	Session           domain.Session
	TotalActiveMillis int64
	ActiveMinutes     int
	PointsAwarded     int
	AlreadyEnded      bool
}

// LifecycleService is the transactional state machine for reading sessions.
// Every mutating operation re-reads the records it touches inside one
// serializable transaction; correctness under concurrent callers comes from
// the store's conflict detection, not from in-process locking.
type LifecycleService struct {
	tx          port.Transactor
	sessions    port.SessionRepository
	events      port.EventPublisher
	leaderboard port.Leaderboard
	metrics     MetricsRecorder
	logger      *zap.Logger
	cfg         LifecycleConfig
	now         func() time.Time
}

// NewLifecycleService constructs the session lifecycle service. The sessions
// repository is the pool-backed instance used only for read paths; mutations
// go through the transactor.
func NewLifecycleService(tx port.Transactor, sessions port.SessionRepository, events port.EventPublisher, cfg LifecycleConfig, logger *zap.Logger) *LifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		tx:       tx,
		sessions: sessions,
		events:   events,
		logger:   logger,
		cfg:      cfg.withDefaults(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *LifecycleService) WithClock(clock func() time.Time) *LifecycleService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithLeaderboard injects the points ranking updated on rewards.
func (s *LifecycleService) WithLeaderboard(board port.Leaderboard) *LifecycleService {
	s.leaderboard = board
	return s
}

// WithMetrics injects the counter sink.
func (s *LifecycleService) WithMetrics(metrics MetricsRecorder) *LifecycleService {
	s.metrics = metrics
	return s
}

// Start creates a new session for the user. The payment gate, the lazy
// reclamation of abandoned sessions, and the one-live-session check all
// happen inside a single transaction: either a fresh session is committed
// together with the account flag, or nothing changes. A live session younger
// than the stuck threshold rejects the call and rolls back any lazy cleanup
// performed in the same transaction.
func (s *LifecycleService) Start(ctx context.Context, userID string) (*domain.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	now := s.now()
	var (
		created   domain.Session
		reclaimed []domain.SessionReclaimedEvent
	)

	err := s.tx.RunSerializable(ctx, func(ctx context.Context, stores port.Stores) error {
		// The body may re-run on conflict; start from a clean slate.
		reclaimed = reclaimed[:0]

		account, err := stores.Accounts.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("get account: %w", err)
		}
		if !account.Paid {
			return ErrPaymentRequired
		}

		live, err := stores.Sessions.ListLiveByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list live sessions: %w", err)
		}

		for i := range live {
			session := live[i]
			if !session.Abandoned(now, s.cfg.StuckThreshold) {
				return ErrSessionAlreadyActive
			}
			event, err := reclaimSession(ctx, stores, &session, now, domain.SchedulerActorID)
			if err != nil {
				return err
			}
			reclaimed = append(reclaimed, event)
		}

		resumedAt := now
		created = domain.Session{
			ID:            uuid.NewString(),
			UserID:        userID,
			Status:        domain.SessionActive,
			StartedAt:     now,
			LastResumedAt: &resumedAt,
		}
		if err := stores.Sessions.Create(ctx, created); err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		if err := stores.Accounts.SetHasActiveSession(ctx, userID, true); err != nil {
			return fmt.Errorf("set active session flag: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, event := range reclaimed {
		s.publishReclaimed(ctx, event)
	}
	s.publishStarted(ctx, created)

	if s.metrics != nil {
		s.metrics.SessionStarted()
		if len(reclaimed) > 0 {
			s.metrics.SessionsReclaimed(len(reclaimed))
		}
	}

	s.logger.Info("session started",
		zap.String("session_id", created.ID),
		zap.String("user_id", userID),
		zap.Int("reclaimed", len(reclaimed)),
	)

	return &created, nil
}

// Pause freezes an active session owned by the caller.
func (s *LifecycleService) Pause(ctx context.Context, sessionID, callerID string) (*domain.Session, error) {
	return s.transition(ctx, sessionID, callerID, func(session *domain.Session, now time.Time) (bool, error) {
		if !session.Pause(now) {
			return false, ErrInvalidState
		}
		return false, nil
	})
}

// Resume reactivates a paused session owned by the caller. The paused
// interval is derived from the stored pause timestamp.
func (s *LifecycleService) Resume(ctx context.Context, sessionID, callerID string) (*domain.Session, error) {
	return s.transition(ctx, sessionID, callerID, func(session *domain.Session, now time.Time) (bool, error) {
		if !session.Resume(now) {
			return false, ErrInvalidState
		}
		return true, nil
	})
}

func (s *LifecycleService) transition(ctx context.Context, sessionID, callerID string, apply func(*domain.Session, time.Time) (bool, error)) (*domain.Session, error) {
	now := s.now()
	var updated domain.Session

	err := s.tx.RunSerializable(ctx, func(ctx context.Context, stores port.Stores) error {
		session, err := fetchOwnedSession(ctx, stores, sessionID, callerID)
		if err != nil {
			return err
		}

		active, err := apply(session, now)
		if err != nil {
			return err
		}

		if err := stores.Sessions.Update(ctx, *session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if err := stores.Accounts.SetHasActiveSession(ctx, session.UserID, active); err != nil {
			return fmt.Errorf("set active session flag: %w", err)
		}

		updated = *session
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// End terminates the caller's session and settles rewards. Calling End on an
// already ended session is a defined success returning the frozen totals
// without touching counters, so network retries cannot double-award points.
func (s *LifecycleService) End(ctx context.Context, sessionID, callerID string) (*EndResult, error) {
	result, err := s.terminate(ctx, sessionID, callerID, false, domain.TerminationUserEnded, "")
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ForceEnd terminates any user's session on behalf of an admin, recording the
// action in the audit log. The reward rule is the same as a normal end; who
// triggered the termination does not change what the reader earned.
func (s *LifecycleService) ForceEnd(ctx context.Context, sessionID, adminID, reason string) (*EndResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "admin_action"
	}
	return s.terminate(ctx, sessionID, adminID, true, domain.TerminationAdminForced, reason)
}

func (s *LifecycleService) terminate(ctx context.Context, sessionID, callerID string, asAdmin bool, reason domain.TerminationReason, note string) (*EndResult, error) {
	now := s.now()
	var result EndResult

	err := s.tx.RunSerializable(ctx, func(ctx context.Context, stores port.Stores) error {
		result = EndResult{}

		var session *domain.Session
		var err error
		if asAdmin {
			admin, err := stores.Accounts.Get(ctx, callerID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrAdminRequired
				}
				return fmt.Errorf("get admin account: %w", err)
			}
			if !admin.Admin {
				return ErrAdminRequired
			}
			session, err = fetchSession(ctx, stores, sessionID)
			if err != nil {
				return err
			}
		} else {
			session, err = fetchOwnedSession(ctx, stores, sessionID, callerID)
			if err != nil {
				return err
			}
		}

		if !session.End(now, reason) {
			// Already ended: idempotent success, nothing is rewritten.
			result = EndResult{
				Session:           *session,
				TotalActiveMillis: session.TotalActiveMillis,
				ActiveMinutes:     int(session.TotalActiveMillis / 60000),
				AlreadyEnded:      true,
			}
			return nil
		}

		activeMinutes := int(session.TotalActiveMillis / 60000)
		points := 0
		if activeMinutes >= s.cfg.RewardThresholdMinutes {
			points = s.cfg.PointsPerReward
		}

		if err := stores.Sessions.Update(ctx, *session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if err := stores.Accounts.SetHasActiveSession(ctx, session.UserID, false); err != nil {
			return fmt.Errorf("set active session flag: %w", err)
		}
		if err := stores.Accounts.ApplySessionCompletion(ctx, session.UserID, activeMinutes, points); err != nil {
			return fmt.Errorf("apply session completion: %w", err)
		}

		if asAdmin {
			entry := domain.AuditEntry{
				ID:              uuid.NewString(),
				ActorID:         callerID,
				Action:          domain.AuditActionForceEnd,
				TargetUserID:    session.UserID,
				TargetSessionID: session.ID,
				Reason:          note,
				At:              now,
			}
			if err := stores.Audit.Append(ctx, entry); err != nil {
				return fmt.Errorf("append audit entry: %w", err)
			}
		}

		result = EndResult{
			Session:           *session,
			TotalActiveMillis: session.TotalActiveMillis,
			ActiveMinutes:     activeMinutes,
			PointsAwarded:     points,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyEnded {
		s.settleAfterEnd(ctx, result, callerID)
	}

	return &result, nil
}

func (s *LifecycleService) settleAfterEnd(ctx context.Context, result EndResult, endedBy string) {
	if s.metrics != nil {
		s.metrics.SessionEnded(string(result.Session.TerminationReason))
		if result.PointsAwarded > 0 {
			s.metrics.PointsAwarded(result.PointsAwarded)
		}
	}

	if s.leaderboard != nil && result.PointsAwarded > 0 {
		if err := s.leaderboard.AddPoints(ctx, result.Session.UserID, result.PointsAwarded); err != nil {
			s.logger.Warn("leaderboard update failed",
				zap.String("user_id", result.Session.UserID),
				zap.Error(err),
			)
		}
	}

	if s.events == nil {
		return
	}

	endedAt := s.now()
	if result.Session.EndedAt != nil {
		endedAt = *result.Session.EndedAt
	}
	event := domain.SessionEndedEvent{
		EventID:           uuid.NewString(),
		SessionID:         result.Session.ID,
		UserID:            result.Session.UserID,
		EndedAt:           endedAt,
		TotalActiveMillis: result.TotalActiveMillis,
		ActiveMinutes:     result.ActiveMinutes,
		PointsAwarded:     result.PointsAwarded,
		Reason:            result.Session.TerminationReason,
		EndedBy:           endedBy,
	}
	if err := s.events.PublishSessionEnded(ctx, event); err != nil {
		s.logger.Warn("publish session ended failed",
			zap.String("session_id", result.Session.ID),
			zap.Error(err),
		)
	}

	if result.PointsAwarded > 0 {
		award := domain.PointsAwardedEvent{
			EventID:   uuid.NewString(),
			UserID:    result.Session.UserID,
			SessionID: result.Session.ID,
			Points:    result.PointsAwarded,
			AwardedAt: endedAt,
		}
		if err := s.events.PublishPointsAwarded(ctx, award); err != nil {
			s.logger.Warn("publish points awarded failed",
				zap.String("session_id", result.Session.ID),
				zap.Error(err),
			)
		}
	}
}

// GetActive returns the user's current live session, or nil when there is
// none. This is a single consistent read for display purposes; mutating
// operations always re-read inside their own transaction.
func (s *LifecycleService) GetActive(ctx context.Context, userID string) (*domain.Session, error) {
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	live, err := s.sessions.ListLiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list live sessions: %w", err)
	}
	if len(live) == 0 {
		return nil, nil
	}
	return &live[0], nil
}

func (s *LifecycleService) publishStarted(ctx context.Context, session domain.Session) {
	if s.events == nil {
		return
	}
	event := domain.SessionStartedEvent{
		EventID:   uuid.NewString(),
		SessionID: session.ID,
		UserID:    session.UserID,
		StartedAt: session.StartedAt,
	}
	if err := s.events.PublishSessionStarted(ctx, event); err != nil {
		s.logger.Warn("publish session started failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}
}

func (s *LifecycleService) publishReclaimed(ctx context.Context, event domain.SessionReclaimedEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishSessionReclaimed(ctx, event); err != nil {
		s.logger.Warn("publish session reclaimed failed",
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
	}
}

func fetchSession(ctx context.Context, stores port.Stores, sessionID string) (*domain.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	session, err := stores.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func fetchOwnedSession(ctx context.Context, stores port.Stores, sessionID, callerID string) (*domain.Session, error) {
	session, err := fetchSession(ctx, stores, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != callerID {
		return nil, ErrSessionForbidden
	}
	return session, nil
}

// reclaimSession terminates an abandoned session inside the caller's
// transaction: freeze the total, clear the owner's flag, and append the audit
// entry. Both the lazy path in Start and the periodic sweep funnel through
// this one function so the accounting can never drift between them.
func reclaimSession(ctx context.Context, stores port.Stores, session *domain.Session, now time.Time, actorID string) (domain.SessionReclaimedEvent, error) {
	age := now.Sub(session.StartedAt)

	if !session.End(now, domain.TerminationStuckCleanup) {
		return domain.SessionReclaimedEvent{}, ErrInvalidState
	}
	if err := stores.Sessions.Update(ctx, *session); err != nil {
		return domain.SessionReclaimedEvent{}, fmt.Errorf("update reclaimed session: %w", err)
	}
	if err := stores.Accounts.SetHasActiveSession(ctx, session.UserID, false); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.SessionReclaimedEvent{}, fmt.Errorf("clear active session flag: %w", err)
	}

	activeMinutes := int(session.TotalActiveMillis / 60000)
	entry := domain.AuditEntry{
		ID:              uuid.NewString(),
		ActorID:         actorID,
		Action:          domain.AuditActionReclaim,
		TargetUserID:    session.UserID,
		TargetSessionID: session.ID,
		Reason:          string(domain.TerminationStuckCleanup),
		At:              now,
		Details: map[string]any{
			"session_age_ms":  age.Milliseconds(),
			"active_minutes":  activeMinutes,
			"total_active_ms": session.TotalActiveMillis,
		},
	}
	if err := stores.Audit.Append(ctx, entry); err != nil {
		return domain.SessionReclaimedEvent{}, fmt.Errorf("append audit entry: %w", err)
	}

	return domain.SessionReclaimedEvent{
		EventID:       uuid.NewString(),
		SessionID:     session.ID,
		UserID:        session.UserID,
		ReclaimedAt:   now,
		ActiveMinutes: activeMinutes,
		SessionAge:    age,
	}, nil
}
