package challenge

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/errors"
	"github.com/eduverse/typehub/internal/gamification"
	"github.com/eduverse/typehub/internal/postgres"
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

const challengeColumns = `id, slug, title, description, difficulty, language, expected_output, points_reward`

func scanChallenge(row pgx.Row) (domain.Challenge, error) {
	var c domain.Challenge
	err := row.Scan(&c.ID, &c.Slug, &c.Title, &c.Description, &c.Difficulty, &c.Language, &c.ExpectedOutput, &c.PointsReward)
	return c, err
}

func (s *Service) List(ctx context.Context) ([]domain.Challenge, error) {
	rows, err := s.db.Query(ctx, `SELECT `+challengeColumns+` FROM challenges ORDER BY difficulty, title;`)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}

	challenges, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Challenge, error) {
		return scanChallenge(r)
	})
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}

	return challenges, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Challenge, error) {
	c, err := scanChallenge(s.db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE slug = $1;`, slug))
	if err != nil {
		return nil, postgres.NotFound(err, "challenge not found: slug=%s", slug)
	}

	return &c, nil
}

// Check reports whether output solves c. Surrounding whitespace is ignored on both sides.
func Check(c domain.Challenge, output string) bool {
	return strings.TrimSpace(output) == strings.TrimSpace(c.ExpectedOutput)
}

type SubmitRequest struct {
	UserID      string
	ChallengeID string
	Output      string
}

// Submit stores an attempt. The first correct attempt awards the challenge's
// points. Every attempt counts as activity for the daily streak.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.ChallengeAttempt, error) {
	if strings.TrimSpace(req.Output) == "" {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid challenge attempt"),
			errors.WithFields(errors.FieldError{Field: "output", Message: "is required"}),
		)
	}
	if !postgres.IsUUID(req.ChallengeID) {
		return nil, errors.NotFound("challenge not found: id=%s", req.ChallengeID)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate attempt ID: %w", err)
	}

	var (
		a       domain.ChallengeAttempt
		awarded []domain.BadgeKind
	)
	err = postgres.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.gu.Lock(ctx, tx, req.UserID); err != nil {
			return postgres.NotFound(err, "user not found: id=%s", req.UserID)
		}

		c, err := scanChallenge(tx.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1;`, req.ChallengeID))
		if err != nil {
			return postgres.NotFound(err, "challenge not found: id=%s", req.ChallengeID)
		}

		var solvedBefore bool
		const solved = `SELECT EXISTS (SELECT 1 FROM challenge_attempts WHERE user_id = $1 AND challenge_id = $2 AND correct);`
		if err := tx.QueryRow(ctx, solved, req.UserID, c.ID).Scan(&solvedBefore); err != nil {
			return fmt.Errorf("read attempts: %w", err)
		}

		a = domain.ChallengeAttempt{
			ID:          id.String(),
			ChallengeID: c.ID,
			UserID:      req.UserID,
			Output:      req.Output,
			Correct:     Check(c, req.Output),
		}

		const ins = `
INSERT INTO challenge_attempts (id, challenge_id, user_id, output, correct)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at;`
		if err := tx.QueryRow(ctx, ins, a.ID, a.ChallengeID, a.UserID, a.Output, a.Correct).Scan(&a.CreatedAt); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}

		if err := s.gu.TouchActivity(ctx, tx, req.UserID); err != nil {
			return err
		}

		if a.Correct && !solvedBefore {
			if err := s.gu.AwardPoints(ctx, tx, req.UserID, c.PointsReward, "challenge:"+c.ID); err != nil {
				return err
			}
		}

		awarded, err = s.gu.Apply(ctx, tx, req.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.gu.Announce(ctx, req.UserID, awarded)

	return &a, nil
}
