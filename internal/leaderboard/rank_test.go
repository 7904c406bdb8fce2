package leaderboard_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eduverse/typehub/internal/leaderboard"
)

func TestAssignRanks(t *testing.T) {
	t.Parallel()

	scores := []leaderboard.Score{
		{UserID: "c", Username: "carol", Score: 80},
		{UserID: "a", Username: "alice", Score: 95},
		{UserID: "d", Username: "dave", Score: 0},
		{UserID: "b", Username: "bob", Score: 80},
	}

	tests := map[string]struct {
		limit int
		want  []string
	}{
		"ties broken by user id": {limit: 10, want: []string{"a", "b", "c"}},
		"truncated to limit":     {limit: 2, want: []string{"a", "b"}},
		"zero limit":             {limit: 0, want: nil},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			entries := leaderboard.AssignRanks(scores, test.limit)

			var got []string
			for i, e := range entries {
				require.Equal(t, i+1, e.Rank, "ranks are contiguous from 1")
				got = append(got, e.UserID)
			}
			require.Equal(t, test.want, got)
		})
	}
}

func TestAssignRanks_Size(t *testing.T) {
	t.Parallel()

	for _, users := range []int{0, 3, 10, 25} {
		scores := make([]leaderboard.Score, 0, users)
		for i := 0; i < users; i++ {
			scores = append(scores, leaderboard.Score{UserID: fmt.Sprintf("u%02d", i), Score: 1 + i%4})
		}

		entries := leaderboard.AssignRanks(scores, 10)
		require.Len(t, entries, min(10, users))

		seen := make(map[int]bool)
		for _, e := range entries {
			require.False(t, seen[e.Rank], "duplicate rank %d", e.Rank)
			seen[e.Rank] = true
			require.LessOrEqual(t, e.Rank, len(entries))
		}
	}
}

func TestOutsideRank(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		greater, snapshot, want int
	}{
		"below the snapshot":          {greater: 14, snapshot: 10, want: 15},
		"tied with the last ranked":   {greater: 9, snapshot: 10, want: 11},
		"empty snapshot":              {greater: 0, snapshot: 0, want: 1},
		"snapshot shorter than limit": {greater: 2, snapshot: 3, want: 4},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, test.want, leaderboard.OutsideRank(test.greater, test.snapshot))
		})
	}
}
