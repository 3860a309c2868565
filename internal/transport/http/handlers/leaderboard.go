package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-reading/internal/usecase"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// LeaderboardHandler serves the points ranking.
type LeaderboardHandler struct {
	leaderboard *usecase.LeaderboardService
}

// NewLeaderboardHandler constructs a leaderboard handler.
func NewLeaderboardHandler(leaderboard *usecase.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// RegisterRoutes binds the leaderboard route to the provided router group.
func (h *LeaderboardHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	r.GET("", h.Top)
}

// Top returns the highest-scoring accounts, best first.
func (h *LeaderboardHandler) Top(c *gin.Context) {
	if h.leaderboard == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "leaderboard unavailable"))
		return
	}

	limit := defaultLeaderboardLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	entries, err := h.leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}

	payload := make([]LeaderboardEntryPayload, 0, len(entries))
	for i, entry := range entries {
		payload = append(payload, LeaderboardEntryPayload{
			Rank:   i + 1,
			UserID: entry.UserID,
			Points: entry.Points,
		})
	}

	c.JSON(http.StatusOK, LeaderboardResponse{Entries: payload, Total: len(payload)})
}
