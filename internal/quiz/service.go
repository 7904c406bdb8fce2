package quiz

import (
	"context"
	"fmt"

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

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const quizColumns = `id, slug, title, description, lesson_id, pass_score, points_reward`

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var q domain.Quiz
	err := row.Scan(&q.ID, &q.Slug, &q.Title, &q.Description, &q.LessonID, &q.PassScore, &q.PointsReward)
	return q, err
}

// List returns every quiz without its questions.
func (s *Service) List(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.db.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY title;`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}

	quizzes, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Quiz, error) {
		return scanQuiz(r)
	})
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}

	return quizzes, nil
}

// Get returns a quiz with its questions in display order. The correct options
// stay on the returned value but are never serialized.
func (s *Service) Get(ctx context.Context, id string) (*domain.Quiz, error) {
	return get(ctx, s.db, id)
}

func get(ctx context.Context, db querier, id string) (*domain.Quiz, error) {
	if !postgres.IsUUID(id) {
		return nil, errors.NotFound("quiz not found: id=%s", id)
	}

	q, err := scanQuiz(db.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id = $1;`, id))
	if err != nil {
		return nil, postgres.NotFound(err, "quiz not found: id=%s", id)
	}

	const stmt = `
SELECT id, text, options, correct_index
FROM quiz_questions
WHERE quiz_id = $1
ORDER BY position, id;`

	rows, err := db.Query(ctx, stmt, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	q.Questions, err = pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Question, error) {
		var qq domain.Question
		err := r.Scan(&qq.ID, &qq.Text, &qq.Options, &qq.Correct)
		return qq, err
	})
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	return &q, nil
}

type SubmitRequest struct {
	UserID string
	QuizID string
	// Answers maps question id to the chosen option index.
	Answers map[string]int
}

// Submit grades and stores an attempt. The first passing attempt of a quiz
// awards its points. Every attempt counts as activity for the daily streak.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.QuizAttempt, error) {
	if len(req.Answers) == 0 {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid quiz attempt"),
			errors.WithFields(errors.FieldError{Field: "answers", Message: "is required"}),
		)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate attempt ID: %w", err)
	}

	var (
		a       domain.QuizAttempt
		awarded []domain.BadgeKind
	)
	err = postgres.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.gu.Lock(ctx, tx, req.UserID); err != nil {
			return postgres.NotFound(err, "user not found: id=%s", req.UserID)
		}

		q, err := get(ctx, tx, req.QuizID)
		if err != nil {
			return err
		}

		var passedBefore bool
		const passed = `SELECT EXISTS (SELECT 1 FROM quiz_attempts WHERE user_id = $1 AND quiz_id = $2 AND passed);`
		if err := tx.QueryRow(ctx, passed, req.UserID, q.ID).Scan(&passedBefore); err != nil {
			return fmt.Errorf("read attempts: %w", err)
		}

		r := Grade(q.Questions, req.Answers)
		a = domain.QuizAttempt{
			ID:      id.String(),
			QuizID:  q.ID,
			UserID:  req.UserID,
			Score:   r.Score,
			Correct: r.Correct,
			Total:   r.Total,
			Passed:  r.Total > 0 && r.Score >= q.PassScore,
		}

		const ins = `
INSERT INTO quiz_attempts (id, quiz_id, user_id, score, correct, total, passed)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at;`
		err = tx.QueryRow(ctx, ins, a.ID, a.QuizID, a.UserID, a.Score, a.Correct, a.Total, a.Passed).Scan(&a.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}

		if err := s.gu.TouchActivity(ctx, tx, req.UserID); err != nil {
			return err
		}

		if a.Passed && !passedBefore {
			if err := s.gu.AwardPoints(ctx, tx, req.UserID, q.PointsReward, "quiz:"+q.ID); err != nil {
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

// Attempts returns the user's attempts at a quiz, newest first.
func (s *Service) Attempts(ctx context.Context, userID, quizID string) ([]domain.QuizAttempt, error) {
	if !postgres.IsUUID(quizID) {
		return nil, errors.NotFound("quiz not found: id=%s", quizID)
	}

	const stmt = `
SELECT id, quiz_id, user_id, score, correct, total, passed, created_at
FROM quiz_attempts
WHERE user_id = $1 AND quiz_id = $2
ORDER BY created_at DESC, id DESC;`

	rows, err := s.db.Query(ctx, stmt, userID, quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attempts, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.QuizAttempt, error) {
		var a domain.QuizAttempt
		err := r.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.Correct, &a.Total, &a.Passed, &a.CreatedAt)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	return attempts, nil
}
