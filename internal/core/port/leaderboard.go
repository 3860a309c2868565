package port

import "context"

// LeaderboardEntry is one row of the points ranking.
type LeaderboardEntry struct {
	UserID string
	Points int
}

// Leaderboard maintains the points ranking served to read-only callers. It is
// a display cache: the accounts table remains the source of truth.
type Leaderboard interface {
	AddPoints(ctx context.Context, userID string, points int) error
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}
