package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-reading/internal/core/port"
)

// LeaderboardService serves point rankings. Reads prefer the cached ranking
// and fall back to the accounts table when the cache is empty or unavailable,
// so the endpoint stays up through a cache flush.
type LeaderboardService struct {
	board    port.Leaderboard
	accounts port.AccountRepository
	logger   *zap.Logger
}

// NewLeaderboardService constructs the ranking service. The board may be nil
// when no cache is configured; reads then come straight from the accounts
// table.
func NewLeaderboardService(board port.Leaderboard, accounts port.AccountRepository, logger *zap.Logger) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardService{board: board, accounts: accounts, logger: logger}
}

// Top returns the highest-ranked users by points.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]port.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	if s.board != nil {
		entries, err := s.board.Top(ctx, limit)
		if err != nil {
			s.logger.Warn("leaderboard cache read failed, falling back to accounts", zap.Error(err))
		} else if len(entries) > 0 {
			return entries, nil
		}
	}

	accounts, err := s.accounts.TopByPoints(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top accounts by points: %w", err)
	}

	entries := make([]port.LeaderboardEntry, 0, len(accounts))
	for _, account := range accounts {
		entries = append(entries, port.LeaderboardEntry{UserID: account.ID, Points: account.Points})
	}
	return entries, nil
}
