package leaderboard_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/errors"
	"github.com/eduverse/typehub/internal/event"
	"github.com/eduverse/typehub/internal/leaderboard"
	"github.com/eduverse/typehub/internal/postgres/pgtest"
)

func TestService_Get_Cached(t *testing.T) {
	s, rs := makeService(t)

	snapshot := domain.Leaderboard{
		Type:   domain.LeaderboardWPM,
		Period: domain.PeriodWeekly,
		Entries: []domain.LeaderboardEntry{
			{UserID: "u1", Username: "alice", Rank: 1, Score: 120},
			{UserID: "u2", Username: "bob", Rank: 2, Score: 90},
		},
		ComputedAt: time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(snapshot)
	require.NoError(t, err)
	require.NoError(t, rs.Set("test:leaderboard:wpm:weekly", string(b)))

	got, err := s.Get(context.Background(), leaderboard.GetRequest{
		Type:   domain.LeaderboardWPM,
		Period: domain.PeriodWeekly,
	})
	require.NoError(t, err)
	require.Equal(t, &snapshot, got)

	rank, err := s.MyRank(context.Background(), leaderboard.MyRankRequest{
		UserID: "u2",
		Type:   domain.LeaderboardWPM,
		Period: domain.PeriodWeekly,
	})
	require.NoError(t, err)
	require.Equal(t, &domain.Rank{
		Type:   domain.LeaderboardWPM,
		Period: domain.PeriodWeekly,
		Rank:   2,
		Score:  90,
		Cached: true,
	}, rank)
}

func TestService_Rebuild_InProgress(t *testing.T) {
	s, rs := makeService(t)

	require.NoError(t, rs.Set("test:leaderboard:points:daily:lock", "1"))

	_, err := s.Rebuild(context.Background(), leaderboard.RebuildRequest{
		Type:   domain.LeaderboardPoints,
		Period: domain.PeriodDaily,
	})
	require.True(t, errors.Is(err, errors.CodeResourceExhausted))
	require.True(t, rs.Exists("test:leaderboard:points:daily:lock"), "lock held by someone else must stay")
}

func TestService_Rebuild(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()

	// Other tests may share the database, so only relative order of our users is asserted.
	users := map[string]int{}
	for name, wpm := range map[string]int{"fast": 150, "mid": 149, "slow": 148} {
		id := pgtest.CreateUser(t, db, name)
		_, err := db.Exec(ctx, `INSERT INTO typing_tests (id, user_id, wpm, accuracy, duration_seconds) VALUES (gen_random_uuid(), $1, $2, 95, 60)`, id, wpm)
		require.NoError(t, err)
		users[id] = wpm
	}

	eb := event.NewBus()
	var (
		mu        sync.Mutex
		published []domain.EventLeaderboardUpdated
	)
	eb.Subscribe(domain.EventNameLeaderboardUpdated, func(ctx context.Context, e event.Event) error {
		mu.Lock()
		published = append(published, e.(domain.EventLeaderboardUpdated))
		mu.Unlock()
		return nil
	})

	s, rs := makeService(t, withDB(db), withEventBus(eb), withSize(1000))

	lb, err := s.Rebuild(ctx, leaderboard.RebuildRequest{Type: domain.LeaderboardWPM, Period: domain.PeriodAllTime})
	require.NoError(t, err)
	eb.Stop()

	for i, e := range lb.Entries {
		require.Equal(t, i+1, e.Rank)
	}

	var order []int
	for _, e := range lb.Entries {
		if wpm, ok := users[e.UserID]; ok {
			order = append(order, wpm)
		}
	}
	require.Equal(t, []int{150, 149, 148}, order)

	require.True(t, rs.Exists("test:leaderboard:wpm:all-time"))
	require.False(t, rs.Exists("test:leaderboard:wpm:all-time:lock"))
	require.Len(t, published, 1)

	var stored int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM leaderboard_entries WHERE type = 'wpm' AND period = 'all-time'`).Scan(&stored))
	require.Equal(t, len(lb.Entries), stored)
}

func TestService_MyRank_Outside(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()

	var ids []string
	for _, wpm := range []int{300, 299, 298} {
		id := pgtest.CreateUser(t, db, "ranked")
		_, err := db.Exec(ctx, `INSERT INTO typing_tests (id, user_id, wpm, accuracy, duration_seconds) VALUES (gen_random_uuid(), $1, $2, 95, 60)`, id, wpm)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	s, _ := makeService(t, withDB(db), withSize(1))

	_, err := s.Rebuild(ctx, leaderboard.RebuildRequest{Type: domain.LeaderboardWPM, Period: domain.PeriodDaily})
	require.NoError(t, err)

	rank, err := s.MyRank(ctx, leaderboard.MyRankRequest{UserID: ids[2], Type: domain.LeaderboardWPM, Period: domain.PeriodDaily})
	require.NoError(t, err)
	require.False(t, rank.Cached)
	require.Equal(t, 298, rank.Score)
	require.Greater(t, rank.Rank, 1)

	var greater int
	require.NoError(t, db.QueryRow(ctx, `
SELECT COUNT(*) FROM (
	SELECT user_id, MAX(wpm) AS best FROM (
		SELECT user_id, wpm, created_at FROM typing_tests
		UNION ALL
		SELECT user_id, wpm, created_at FROM code_typing_tests
	) t
	WHERE created_at >= $1
	GROUP BY user_id
) s WHERE best > 298`, domain.PeriodDaily.Since(time.Now())).Scan(&greater))
	require.Equal(t, greater+1, rank.Rank)
}

func makeService(t *testing.T, opts ...options) (*leaderboard.Service, *miniredis.Miniredis) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(ctx).Err(), "should be able to ping redis")

	c := leaderboard.Config{
		EventBus: event.NewBus(),
		Redis:    rc,
		Prefix:   "test",
	}

	for _, opt := range opts {
		opt(&c)
	}

	return leaderboard.NewService(c), rs
}

type options func(c *leaderboard.Config)

func withEventBus(eb *event.Bus) options {
	return func(c *leaderboard.Config) {
		c.EventBus = eb
	}
}

func withDB(db *pgxpool.Pool) options {
	return func(c *leaderboard.Config) {
		c.DB = db
	}
}

func withSize(n int) options {
	return func(c *leaderboard.Config) {
		c.Size = n
	}
}
