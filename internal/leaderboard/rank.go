package leaderboard

import (
	"slices"
	"strings"

	"github.com/eduverse/typehub/internal/domain"
)

// Score is one user's score within a (type, period) window.
type Score struct {
	UserID   string `db:"user_id"`
	Username string `db:"username"`
	Score    int    `db:"score"`
}

// AssignRanks orders scores descending, breaking ties by user id, keeps the
// first limit users with a positive score and numbers them 1..k.
func AssignRanks(scores []Score, limit int) []domain.LeaderboardEntry {
	sorted := slices.Clone(scores)
	slices.SortFunc(sorted, func(a, b Score) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return strings.Compare(a.UserID, b.UserID)
	})

	entries := make([]domain.LeaderboardEntry, 0, min(len(sorted), max(limit, 0)))
	for _, sc := range sorted {
		if len(entries) == limit || sc.Score <= 0 {
			break
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID:   sc.UserID,
			Username: sc.Username,
			Rank:     len(entries) + 1,
			Score:    sc.Score,
		})
	}

	return entries
}

// OutsideRank is the rank of a user missing from a snapshot of snapshotLen
// entries, given how many users score strictly higher. A tie with the last
// ranked user still places the caller after the snapshot.
func OutsideRank(greater, snapshotLen int) int {
	return max(greater+1, snapshotLen+1)
}
