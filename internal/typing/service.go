package typing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/errors"
	"github.com/eduverse/typehub/internal/gamification"
	"github.com/eduverse/typehub/internal/postgres"
	"github.com/eduverse/typehub/internal/telemetry"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	recentTests      = 10
)

type Config struct {
	DB           *pgxpool.Pool
	Gamification *gamification.Updater
}

type Service struct {
	db *pgxpool.Pool
	gu *gamification.Updater
}

func NewService(c Config) *Service {
	return &Service{
		db: c.DB,
		gu: c.Gamification,
	}
}

type SubmitResultRequest struct {
	UserID     string
	Kind       domain.TestKind
	WPM        int
	Accuracy   float64
	Duration   int
	Characters int
	Errors     int

	// Mode applies to generic tests, Language to code tests.
	Mode     string
	Language string
}

func (r SubmitResultRequest) validate() error {
	var fields []errors.FieldError
	if r.WPM < 0 {
		fields = append(fields, errors.FieldError{Field: "wpm", Message: "must be greater than or equal to 0"})
	}
	if r.Accuracy < 0 || r.Accuracy > 100 {
		fields = append(fields, errors.FieldError{Field: "accuracy", Message: "must be between 0 and 100"})
	}
	if r.Duration < 1 {
		fields = append(fields, errors.FieldError{Field: "duration", Message: "must be at least 1"})
	}
	if r.Characters < 0 {
		fields = append(fields, errors.FieldError{Field: "characters", Message: "must be greater than or equal to 0"})
	}
	if r.Errors < 0 {
		fields = append(fields, errors.FieldError{Field: "errors", Message: "must be greater than or equal to 0"})
	}
	switch r.Kind {
	case domain.TestKindTyping:
		if r.Language != "" {
			fields = append(fields, errors.FieldError{Field: "language", Message: "is only accepted for code typing results"})
		}
	case domain.TestKindCode:
		if r.Mode != "" {
			fields = append(fields, errors.FieldError{Field: "mode", Message: "is only accepted for typing results"})
		}
	default:
		fields = append(fields, errors.FieldError{Field: "kind", Message: "must be typing or code"})
	}

	if len(fields) > 0 {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid typing result"),
			errors.WithFields(fields...),
		)
	}

	return nil
}

// SubmitResult stores one immutable test result, then refreshes the user's
// aggregates and badges in the same transaction. Duplicate submissions create
// duplicate rows.
func (s *Service) SubmitResult(ctx context.Context, req SubmitResultRequest) (*domain.TypingTest, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate test ID: %w", err)
	}

	tt := &domain.TypingTest{
		ID:         id.String(),
		UserID:     req.UserID,
		Kind:       req.Kind,
		WPM:        req.WPM,
		Accuracy:   req.Accuracy,
		Duration:   req.Duration,
		Characters: req.Characters,
		Errors:     req.Errors,
		Mode:       req.Mode,
		Language:   req.Language,
	}

	var awarded []domain.BadgeKind
	err = postgres.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.gu.Lock(ctx, tx, req.UserID); err != nil {
			return postgres.NotFound(err, "user not found: id=%s", req.UserID)
		}

		if err := insertTest(ctx, tx, tt); err != nil {
			return err
		}

		if err := s.gu.RefreshTypingAggregates(ctx, tx, req.UserID); err != nil {
			return err
		}

		if err := s.gu.TouchActivity(ctx, tx, req.UserID); err != nil {
			return err
		}

		awarded, err = s.gu.Apply(ctx, tx, req.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	telemetry.TypingResults.WithLabelValues(string(req.Kind)).Inc()
	s.gu.Announce(ctx, req.UserID, awarded)

	return tt, nil
}

func insertTest(ctx context.Context, tx pgx.Tx, tt *domain.TypingTest) error {
	var stmt, label string
	switch tt.Kind {
	case domain.TestKindCode:
		stmt = `
INSERT INTO code_typing_tests (id, user_id, wpm, accuracy, duration_seconds, char_count, error_count, language)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at;`
		label = tt.Language
	default:
		stmt = `
INSERT INTO typing_tests (id, user_id, wpm, accuracy, duration_seconds, char_count, error_count, mode)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at;`
		label = tt.Mode
	}

	err := tx.QueryRow(ctx, stmt, tt.ID, tt.UserID, tt.WPM, tt.Accuracy, tt.Duration, tt.Characters, tt.Errors, label).Scan(&tt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert %s test: %w", tt.Kind, err)
	}

	return nil
}

type ListResultsRequest struct {
	UserID string

	// Kind filters by test kind, empty lists both kinds.
	Kind   domain.TestKind
	Limit  int
	Offset int
}

// ListResults returns the user's results, newest first.
func (s *Service) ListResults(ctx context.Context, req ListResultsRequest) ([]domain.TypingTest, error) {
	limit := req.Limit
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	return s.listResults(ctx, req.UserID, req.Kind, limit, max(req.Offset, 0))
}

func (s *Service) listResults(ctx context.Context, userID string, kind domain.TestKind, limit, offset int) ([]domain.TypingTest, error) {
	var parts []string
	if kind == "" || kind == domain.TestKindTyping {
		parts = append(parts, `SELECT id, 'typing' AS kind, wpm, accuracy, duration_seconds, char_count, error_count, mode AS label, created_at FROM typing_tests WHERE user_id = $1`)
	}
	if kind == "" || kind == domain.TestKindCode {
		parts = append(parts, `SELECT id, 'code' AS kind, wpm, accuracy, duration_seconds, char_count, error_count, language AS label, created_at FROM code_typing_tests WHERE user_id = $1`)
	}

	stmt := strings.Join(parts, "\nUNION ALL\n") + "\nORDER BY created_at DESC, id DESC\nLIMIT $2 OFFSET $3;"

	rows, err := s.db.Query(ctx, stmt, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	tests, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.TypingTest, error) {
		var (
			tt    domain.TypingTest
			kind  string
			label string
		)
		if err := r.Scan(&tt.ID, &kind, &tt.WPM, &tt.Accuracy, &tt.Duration, &tt.Characters, &tt.Errors, &label, &tt.CreatedAt); err != nil {
			return domain.TypingTest{}, err
		}
		tt.UserID = userID
		tt.Kind = domain.TestKind(kind)
		if tt.Kind == domain.TestKindCode {
			tt.Language = label
		} else {
			tt.Mode = label
		}
		return tt, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	return tests, nil
}

// Statistics summarizes the user's typing history from the stored aggregates.
func (s *Service) Statistics(ctx context.Context, userID string) (*domain.TypingStatistics, error) {
	const stmt = `
SELECT
	(SELECT COUNT(*) FROM typing_tests WHERE user_id = u.id),
	(SELECT COUNT(*) FROM code_typing_tests WHERE user_id = u.id),
	u.best_wpm,
	u.average_wpm,
	u.average_accuracy,
	u.total_typing_seconds,
	u.streak_days,
	u.last_activity_at
FROM users u
WHERE u.id = $1;`

	var (
		st   domain.TypingStatistics
		last *time.Time
	)
	err := s.db.QueryRow(ctx, stmt, userID).Scan(
		&st.TypingTests,
		&st.CodeTests,
		&st.BestWPM,
		&st.AverageWPM,
		&st.AverageAccuracy,
		&st.TotalTypingSeconds,
		&st.StreakDays,
		&last,
	)
	if err != nil {
		return nil, postgres.NotFound(err, "user not found: id=%s", userID)
	}
	st.TotalTests = st.TypingTests + st.CodeTests
	st.StreakDays = currentStreak(st.StreakDays, last, time.Now())

	st.Recent, err = s.listResults(ctx, userID, "", recentTests, 0)
	if err != nil {
		return nil, err
	}

	return &st, nil
}

// currentStreak hides a streak that was broken since the last activity.
func currentStreak(stored int, last *time.Time, now time.Time) int {
	if last == nil || !gamification.StreakAlive(*last, now) {
		return 0
	}
	return stored
}
