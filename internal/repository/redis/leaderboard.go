package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/arklim/social-platform-reading/internal/core/port"
)

const defaultLeaderboardKey = "reading:leaderboard:points"

// Leaderboard keeps the points ranking in a Redis sorted set. It is a cache
// over the accounts table: scores are incremented alongside reward writes and
// the set can be rebuilt from the table at any time.
type Leaderboard struct {
	client *redis.Client
	key    string
}

// NewLeaderboard constructs a leaderboard over the provided Redis client.
func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client, key: defaultLeaderboardKey}
}

// WithKey overrides the sorted set key.
func (l *Leaderboard) WithKey(key string) *Leaderboard {
	if key != "" {
		l.key = key
	}
	return l
}

// AddPoints increments the user's score.
func (l *Leaderboard) AddPoints(ctx context.Context, userID string, points int) error {
	if points == 0 {
		return nil
	}
	if err := l.client.ZIncrBy(ctx, l.key, float64(points), userID).Err(); err != nil {
		return fmt.Errorf("redis zincrby: %w", err)
	}
	return nil
}

// Top returns the highest scores in descending order.
func (l *Leaderboard) Top(ctx context.Context, limit int) ([]port.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	members, err := l.client.ZRevRangeWithScores(ctx, l.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange: %w", err)
	}

	entries := make([]port.LeaderboardEntry, 0, len(members))
	for _, member := range members {
		userID, ok := member.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, port.LeaderboardEntry{
			UserID: userID,
			Points: int(member.Score),
		})
	}
	return entries, nil
}

var _ port.Leaderboard = (*Leaderboard)(nil)
