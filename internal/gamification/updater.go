package gamification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/event"
	"github.com/eduverse/typehub/internal/telemetry"
)

type Config struct {
	EventBus *event.Bus
	Now      func() time.Time
}

// Updater maintains the rolling aggregates on users and awards badges. Every
// method runs inside a transaction owned by the caller, so the award decision
// is consistent with the state the caller just wrote.
type Updater struct {
	eb  *event.Bus
	now func() time.Time
}

func NewUpdater(c Config) *Updater {
	u := &Updater{
		eb:  c.EventBus,
		now: c.Now,
	}
	if u.now == nil {
		u.now = time.Now
	}

	return u
}

// Lock takes the user's row lock for the rest of tx. Concurrent submissions for
// the same user are serialized from here on, so neither can read counters the
// other is about to change.
func (u *Updater) Lock(ctx context.Context, tx pgx.Tx, userID string) error {
	const stmt = `SELECT 1 FROM users WHERE id = $1 FOR UPDATE;`

	var one int
	if err := tx.QueryRow(ctx, stmt, userID).Scan(&one); err != nil {
		return fmt.Errorf("lock user %s: %w", userID, err)
	}

	return nil
}

// RefreshTypingAggregates recomputes best WPM, average WPM, average accuracy and
// total typing time from both test tables.
func (u *Updater) RefreshTypingAggregates(ctx context.Context, tx pgx.Tx, userID string) error {
	const stmt = `
WITH t AS (
	SELECT wpm, accuracy, duration_seconds FROM typing_tests WHERE user_id = $1
	UNION ALL
	SELECT wpm, accuracy, duration_seconds FROM code_typing_tests WHERE user_id = $1
)
UPDATE users SET
	best_wpm             = COALESCE((SELECT MAX(wpm) FROM t), 0),
	average_wpm          = COALESCE((SELECT ROUND(AVG(wpm)::numeric, 2) FROM t), 0),
	average_accuracy     = COALESCE((SELECT ROUND(AVG(accuracy)::numeric, 2) FROM t), 0),
	total_typing_seconds = COALESCE((SELECT SUM(duration_seconds) FROM t), 0)
WHERE id = $1;`

	if _, err := tx.Exec(ctx, stmt, userID); err != nil {
		return fmt.Errorf("refresh typing aggregates: %w", err)
	}

	return nil
}

// TouchActivity advances the user's daily streak and records now as the last activity.
func (u *Updater) TouchActivity(ctx context.Context, tx pgx.Tx, userID string) error {
	var (
		streak int
		last   *time.Time
	)
	if err := tx.QueryRow(ctx, `SELECT streak_days, last_activity_at FROM users WHERE id = $1;`, userID).Scan(&streak, &last); err != nil {
		return fmt.Errorf("read streak: %w", err)
	}

	now := u.now()
	next := NextStreak(streak, last, now)
	if _, err := tx.Exec(ctx, `UPDATE users SET streak_days = $2, last_activity_at = $3 WHERE id = $1;`, userID, next, now); err != nil {
		return fmt.Errorf("update streak: %w", err)
	}

	return nil
}

// AwardPoints adds amount to the user's total and records the reason in the points ledger.
func (u *Updater) AwardPoints(ctx context.Context, tx pgx.Tx, userID string, amount int, reason string) error {
	if amount <= 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `UPDATE users SET total_points = total_points + $2 WHERE id = $1;`, userID, amount); err != nil {
		return fmt.Errorf("add points: %w", err)
	}

	const ins = `INSERT INTO point_events (user_id, amount, reason, created_at) VALUES ($1, $2, $3, $4);`
	if _, err := tx.Exec(ctx, ins, userID, amount, reason, u.now()); err != nil {
		return fmt.Errorf("insert point event: %w", err)
	}

	return nil
}

// Apply re-reads the user's counters and badges, then connects every newly
// earned badge in a single statement. It returns the badges awarded by this call.
func (u *Updater) Apply(ctx context.Context, tx pgx.Tx, userID string) ([]domain.BadgeKind, error) {
	owned, err := u.ownedBadges(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	c, err := u.counters(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	earned := Evaluate(c, owned)
	if len(earned) == 0 {
		return nil, nil
	}

	kinds := make([]string, 0, len(earned))
	for _, k := range earned {
		kinds = append(kinds, string(k))
	}

	const stmt = `
INSERT INTO user_badges (user_id, badge, awarded_at)
SELECT $1, k, $3 FROM unnest($2::text[]) AS k
ON CONFLICT (user_id, badge) DO NOTHING
RETURNING badge;`

	rows, err := tx.Query(ctx, stmt, userID, kinds, u.now())
	if err != nil {
		return nil, fmt.Errorf("award badges: %w", err)
	}

	awarded, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.BadgeKind, error) {
		var k string
		err := r.Scan(&k)
		return domain.BadgeKind(k), err
	})
	if err != nil {
		return nil, fmt.Errorf("award badges: %w", err)
	}

	return awarded, nil
}

// Announce publishes awarded badges. Call it only after the awarding transaction committed.
func (u *Updater) Announce(ctx context.Context, userID string, awarded []domain.BadgeKind) {
	if len(awarded) == 0 {
		return
	}

	for _, k := range awarded {
		telemetry.BadgesAwarded.WithLabelValues(string(k)).Inc()
	}
	slog.InfoContext(ctx, "gamification: badges awarded", "user", userID, "badges", awarded)

	if u.eb != nil {
		u.eb.Publish(ctx, domain.EventBadgesAwarded{
			UserID: userID,
			Badges: awarded,
		})
	}
}

func (u *Updater) ownedBadges(ctx context.Context, tx pgx.Tx, userID string) (map[domain.BadgeKind]struct{}, error) {
	rows, err := tx.Query(ctx, `SELECT badge FROM user_badges WHERE user_id = $1;`, userID)
	if err != nil {
		return nil, fmt.Errorf("read badges: %w", err)
	}

	kinds, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("read badges: %w", err)
	}

	owned := make(map[domain.BadgeKind]struct{}, len(kinds))
	for _, k := range kinds {
		owned[domain.BadgeKind(k)] = struct{}{}
	}

	return owned, nil
}

func (u *Updater) counters(ctx context.Context, tx pgx.Tx, userID string) (Counters, error) {
	const stmt = `
SELECT
	(SELECT COUNT(*) FROM typing_tests WHERE user_id = u.id),
	(SELECT COUNT(*) FROM code_typing_tests WHERE user_id = u.id),
	u.best_wpm,
	u.average_accuracy,
	u.streak_days,
	(SELECT COUNT(*) FROM lesson_progress WHERE user_id = u.id AND status = 'completed'),
	(SELECT COUNT(DISTINCT quiz_id) FROM quiz_attempts WHERE user_id = u.id AND passed),
	(SELECT COUNT(DISTINCT challenge_id) FROM challenge_attempts WHERE user_id = u.id AND correct),
	u.total_points
FROM users u
WHERE u.id = $1;`

	var (
		c   Counters
		acc decimal.Decimal
	)
	err := tx.QueryRow(ctx, stmt, userID).Scan(
		&c.TypingTests,
		&c.CodeTests,
		&c.BestWPM,
		&acc,
		&c.StreakDays,
		&c.CompletedLessons,
		&c.PassedQuizzes,
		&c.SolvedChallenges,
		&c.TotalPoints,
	)
	if err != nil {
		return Counters{}, fmt.Errorf("read counters: %w", err)
	}
	c.AverageAccuracy = acc.InexactFloat64()

	return c, nil
}
