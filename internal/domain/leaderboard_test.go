package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eduverse/typehub/internal/domain"
)

func TestLeaderboardPeriod_Since(t *testing.T) {
	// Thursday
	now := time.Date(2024, time.March, 14, 15, 30, 0, 0, time.UTC)

	tests := map[domain.LeaderboardPeriod]time.Time{
		domain.PeriodDaily:   time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC),
		domain.PeriodWeekly:  time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
		domain.PeriodMonthly: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		domain.PeriodAllTime: {},
	}

	for p, want := range tests {
		require.Equal(t, want, p.Since(now), "period %s", p)
	}
}

func TestLeaderboardPeriod_SinceSunday(t *testing.T) {
	sunday := time.Date(2024, time.March, 17, 23, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC), domain.PeriodWeekly.Since(sunday))
}

func TestParseLeaderboard(t *testing.T) {
	typ, err := domain.ParseLeaderboardType("wpm")
	require.NoError(t, err)
	require.Equal(t, domain.LeaderboardWPM, typ)

	_, err = domain.ParseLeaderboardType("karma")
	require.Error(t, err)

	p, err := domain.ParseLeaderboardPeriod("all-time")
	require.NoError(t, err)
	require.Equal(t, domain.PeriodAllTime, p)

	_, err = domain.ParseLeaderboardPeriod("yearly")
	require.Error(t, err)
}

func TestLookupBadge(t *testing.T) {
	b, ok := domain.LookupBadge(domain.BadgeSpeedDemon)
	require.True(t, ok)
	require.Equal(t, "Speed Demon", b.Name)

	_, ok = domain.LookupBadge("UNKNOWN")
	require.False(t, ok)
}
