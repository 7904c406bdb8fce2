package leaderboard

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/errors"
	"github.com/eduverse/typehub/internal/event"
	"github.com/eduverse/typehub/internal/postgres"
	"github.com/eduverse/typehub/internal/telemetry"
)

const (
	defaultSize    = 100
	rebuildLockTTL = 30 * time.Second
)

type Config struct {
	DB       *pgxpool.Pool
	Redis    redis.UniversalClient
	EventBus *event.Bus
	Prefix   string

	// Size is the number of users kept in each snapshot.
	Size int
	Now  func() time.Time
}

type Service struct {
	db     *pgxpool.Pool
	redis  redis.UniversalClient
	eb     *event.Bus
	prefix string
	size   int
	now    func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		db:     c.DB,
		redis:  c.Redis,
		eb:     c.EventBus,
		prefix: c.Prefix,
		size:   c.Size,
		now:    c.Now,
	}
	if s.size <= 0 {
		s.size = defaultSize
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// scoreQuery returns a statement listing user_id, username and score for every
// user with activity since $1.
func scoreQuery(t domain.LeaderboardType) string {
	switch t {
	case domain.LeaderboardPoints:
		return `
SELECT u.id AS user_id, u.username, SUM(p.amount)::int AS score
FROM point_events p
JOIN users u ON u.id = p.user_id
WHERE p.created_at >= $1
GROUP BY u.id, u.username`
	case domain.LeaderboardLessons:
		return `
SELECT u.id AS user_id, u.username, COUNT(*)::int AS score
FROM lesson_progress lp
JOIN users u ON u.id = lp.user_id
WHERE lp.status = 'completed' AND lp.completed_at >= $1
GROUP BY u.id, u.username`
	default:
		return `
SELECT u.id AS user_id, u.username, MAX(t.wpm)::int AS score
FROM (
	SELECT user_id, wpm FROM typing_tests WHERE created_at >= $1
	UNION ALL
	SELECT user_id, wpm FROM code_typing_tests WHERE created_at >= $1
) t
JOIN users u ON u.id = t.user_id
GROUP BY u.id, u.username`
	}
}

type RebuildRequest struct {
	Type   domain.LeaderboardType
	Period domain.LeaderboardPeriod
}

// Rebuild recomputes the snapshot for one (type, period) key. The stored rows
// are replaced as a whole in a single transaction, then the snapshot is cached
// in redis and announced on the event bus.
func (s *Service) Rebuild(ctx context.Context, req RebuildRequest) (*domain.Leaderboard, error) {
	start := time.Now()

	lock, ok, err := acquireLock(ctx, s.redis, s.lockKey(req.Type, req.Period), rebuildLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire rebuild lock: %w", err)
	}
	if !ok {
		return nil, errors.New(errors.CodeResourceExhausted,
			errors.WithMessagef("leaderboard %s/%s is already being rebuilt", req.Type, req.Period))
	}
	defer func() {
		held, err := lock.release(context.WithoutCancel(ctx))
		if err != nil {
			slog.WarnContext(ctx, "leaderboard: release rebuild lock failed", "error", err)
			return
		}
		if !held {
			slog.WarnContext(ctx, "leaderboard: rebuild outlived its lock", "type", req.Type, "period", req.Period)
		}
	}()

	now := s.now().UTC()
	lb := &domain.Leaderboard{
		Type:       req.Type,
		Period:     req.Period,
		ComputedAt: now,
	}

	err = postgres.InTx(ctx, s.db, func(tx pgx.Tx) error {
		stmt := `SELECT user_id, username, score FROM (` + scoreQuery(req.Type) + `) s
WHERE score > 0
ORDER BY score DESC, user_id
LIMIT $2;`

		rows, err := tx.Query(ctx, stmt, req.Period.Since(now), s.size)
		if err != nil {
			return fmt.Errorf("query scores: %w", err)
		}
		scores, err := pgx.CollectRows(rows, pgx.RowToStructByName[Score])
		if err != nil {
			return fmt.Errorf("query scores: %w", err)
		}

		lb.Entries = AssignRanks(scores, s.size)

		if _, err := tx.Exec(ctx, `DELETE FROM leaderboard_entries WHERE type = $1 AND period = $2;`,
			string(req.Type), string(req.Period)); err != nil {
			return fmt.Errorf("delete entries: %w", err)
		}

		copyRows := make([][]any, 0, len(lb.Entries))
		for _, e := range lb.Entries {
			copyRows = append(copyRows, []any{
				string(req.Type), string(req.Period), uuid.MustParse(e.UserID), e.Username, e.Rank, e.Score, now,
			})
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"leaderboard_entries"},
			[]string{"type", "period", "user_id", "username", "rank", "score", "computed_at"},
			pgx.CopyFromRows(copyRows),
		)
		if err != nil {
			return fmt.Errorf("copy entries: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache(ctx, lb); err != nil {
		slog.WarnContext(ctx, "leaderboard: cache snapshot failed", "type", req.Type, "period", req.Period, "error", err)
	}

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventLeaderboardUpdated{Leaderboard: *lb})
	}

	took := time.Since(start)
	telemetry.LeaderboardRebuild.WithLabelValues(string(req.Type), string(req.Period)).Observe(took.Seconds())
	slog.InfoContext(ctx, "leaderboard: rebuilt", "type", req.Type, "period", req.Period, "entries", len(lb.Entries), "took", took)

	return lb, nil
}

// RebuildAll rebuilds every (type, period) key. A failed key does not stop the
// others, the errors are joined.
func (s *Service) RebuildAll(ctx context.Context) error {
	var errs []error
	for _, t := range domain.LeaderboardTypes {
		for _, p := range domain.LeaderboardPeriods {
			if _, err := s.Rebuild(ctx, RebuildRequest{Type: t, Period: p}); err != nil {
				errs = append(errs, fmt.Errorf("rebuild %s/%s: %w", t, p, err))
			}
		}
	}

	return stderrors.Join(errs...)
}

type GetRequest struct {
	Type   domain.LeaderboardType
	Period domain.LeaderboardPeriod
}

// Get returns the latest snapshot, from redis when cached and from postgres
// otherwise. A key that was never rebuilt yields an empty leaderboard.
func (s *Service) Get(ctx context.Context, req GetRequest) (*domain.Leaderboard, error) {
	lb, err := s.cached(ctx, req.Type, req.Period)
	if err == nil {
		return lb, nil
	}
	if !stderrors.Is(err, redis.Nil) {
		slog.WarnContext(ctx, "leaderboard: read cached snapshot failed", "type", req.Type, "period", req.Period, "error", err)
	}

	return s.stored(ctx, req.Type, req.Period)
}

func (s *Service) stored(ctx context.Context, t domain.LeaderboardType, p domain.LeaderboardPeriod) (*domain.Leaderboard, error) {
	const stmt = `
SELECT user_id, username, rank, score, computed_at
FROM leaderboard_entries
WHERE type = $1 AND period = $2
ORDER BY rank;`

	rows, err := s.db.Query(ctx, stmt, string(t), string(p))
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}

	lb := &domain.Leaderboard{
		Type:    t,
		Period:  p,
		Entries: []domain.LeaderboardEntry{},
	}
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Rank, &e.Score, &lb.ComputedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("read leaderboard: %w", err)
		}
		lb.Entries = append(lb.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}

	return lb, nil
}

type MyRankRequest struct {
	UserID string
	Type   domain.LeaderboardType
	Period domain.LeaderboardPeriod
}

// MyRank returns the user's rank from the snapshot when present. Otherwise the
// rank is computed live from the number of users with a strictly higher score.
func (s *Service) MyRank(ctx context.Context, req MyRankRequest) (*domain.Rank, error) {
	lb, err := s.Get(ctx, GetRequest{Type: req.Type, Period: req.Period})
	if err != nil {
		return nil, err
	}

	for _, e := range lb.Entries {
		if e.UserID == req.UserID {
			return &domain.Rank{
				Type:   req.Type,
				Period: req.Period,
				Rank:   e.Rank,
				Score:  e.Score,
				Cached: true,
			}, nil
		}
	}

	since := req.Period.Since(s.now())
	scores := scoreQuery(req.Type)

	var score, greater int
	stmt := `SELECT COALESCE((SELECT score FROM (` + scores + `) s WHERE user_id = $2), 0);`
	if err := s.db.QueryRow(ctx, stmt, since, req.UserID).Scan(&score); err != nil {
		return nil, fmt.Errorf("read score: %w", err)
	}

	stmt = `SELECT COUNT(*) FROM (` + scores + `) s WHERE score > $2;`
	if err := s.db.QueryRow(ctx, stmt, since, score).Scan(&greater); err != nil {
		return nil, fmt.Errorf("count higher scores: %w", err)
	}

	return &domain.Rank{
		Type:   req.Type,
		Period: req.Period,
		Rank:   OutsideRank(greater, len(lb.Entries)),
		Score:  score,
	}, nil
}

func (s *Service) cache(ctx context.Context, lb *domain.Leaderboard) error {
	b, err := json.Marshal(lb)
	if err != nil {
		return err
	}

	return s.redis.Set(ctx, s.snapshotKey(lb.Type, lb.Period), b, 0).Err()
}

func (s *Service) cached(ctx context.Context, t domain.LeaderboardType, p domain.LeaderboardPeriod) (*domain.Leaderboard, error) {
	b, err := s.redis.Get(ctx, s.snapshotKey(t, p)).Bytes()
	if err != nil {
		return nil, err
	}

	var lb domain.Leaderboard
	if err := json.Unmarshal(b, &lb); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return &lb, nil
}

func (s *Service) snapshotKey(t domain.LeaderboardType, p domain.LeaderboardPeriod) string {
	return fmt.Sprintf("%s:leaderboard:%s:%s", s.prefix, t, p)
}

func (s *Service) lockKey(t domain.LeaderboardType, p domain.LeaderboardPeriod) string {
	return s.snapshotKey(t, p) + ":lock"
}
