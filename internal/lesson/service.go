package lesson

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

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
	Now          func() time.Time
}

type Service struct {
	db  *pgxpool.Pool
	gu  *gamification.Updater
	now func() time.Time
}

func NewService(c Config) *Service {
	s := &Service{
		db:  c.DB,
		gu:  c.Gamification,
		now: c.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// List returns published lessons in course order. When userID is not empty each
// lesson carries the user's progress, if any.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Lesson, error) {
	const stmt = `
SELECT l.id, l.slug, l.title, l.description, '', l.difficulty, l.order_index, l.points_reward,
	lp.status, lp.progress, lp.time_spent_seconds, lp.completed_at, lp.updated_at
FROM lessons l
LEFT JOIN lesson_progress lp ON lp.lesson_id = l.id AND lp.user_id = $1
WHERE l.published
ORDER BY l.order_index, l.title;`

	rows, err := s.db.Query(ctx, stmt, nullableID(userID))
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}

	lessons, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Lesson, error) {
		return scanLesson(r, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}

	return lessons, nil
}

// GetBySlug returns one lesson including its content.
func (s *Service) GetBySlug(ctx context.Context, slug, userID string) (*domain.Lesson, error) {
	const stmt = `
SELECT l.id, l.slug, l.title, l.description, l.content, l.difficulty, l.order_index, l.points_reward,
	lp.status, lp.progress, lp.time_spent_seconds, lp.completed_at, lp.updated_at
FROM lessons l
LEFT JOIN lesson_progress lp ON lp.lesson_id = l.id AND lp.user_id = $2
WHERE l.slug = $1 AND l.published;`

	l, err := scanLesson(s.db.QueryRow(ctx, stmt, slug, nullableID(userID)), userID)
	if err != nil {
		return nil, postgres.NotFound(err, "lesson not found: slug=%s", slug)
	}

	return &l, nil
}

func scanLesson(row pgx.Row, userID string) (domain.Lesson, error) {
	var (
		l         domain.Lesson
		status    *string
		progress  *int
		spent     *int
		completed *time.Time
		updated   *time.Time
	)
	err := row.Scan(&l.ID, &l.Slug, &l.Title, &l.Description, &l.Content, &l.Difficulty, &l.OrderIndex, &l.PointsReward,
		&status, &progress, &spent, &completed, &updated)
	if err != nil {
		return domain.Lesson{}, err
	}

	if status != nil {
		l.Progress = &domain.LessonProgress{
			UserID:      userID,
			LessonID:    l.ID,
			Status:      domain.LessonStatus(*status),
			Progress:    *progress,
			TimeSpent:   *spent,
			CompletedAt: completed,
			UpdatedAt:   *updated,
		}
	}

	return l, nil
}

// ListProgress returns every lesson the user has touched, most recent first.
func (s *Service) ListProgress(ctx context.Context, userID string) ([]domain.LessonProgress, error) {
	const stmt = `
SELECT user_id, lesson_id, status, progress, time_spent_seconds, completed_at, updated_at
FROM lesson_progress
WHERE user_id = $1
ORDER BY updated_at DESC;`

	rows, err := s.db.Query(ctx, stmt, userID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}

	progress, err := pgx.CollectRows(rows, scanProgress)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}

	return progress, nil
}

func scanProgress(r pgx.CollectableRow) (domain.LessonProgress, error) {
	var (
		p      domain.LessonProgress
		status string
	)
	err := r.Scan(&p.UserID, &p.LessonID, &status, &p.Progress, &p.TimeSpent, &p.CompletedAt, &p.UpdatedAt)
	p.Status = domain.LessonStatus(status)
	return p, err
}

type UpdateProgressRequest struct {
	UserID   string
	LessonID string
	Status   domain.LessonStatus
	Progress int
	// TimeSpent is added to the stored total, in seconds.
	TimeSpent int
}

func (r UpdateProgressRequest) validate() error {
	var fields []errors.FieldError
	switch r.Status {
	case domain.LessonNotStarted, domain.LessonInProgress, domain.LessonCompleted:
	default:
		fields = append(fields, errors.FieldError{Field: "status", Message: "must be one of not_started in_progress completed"})
	}
	if r.Progress < 0 || r.Progress > 100 {
		fields = append(fields, errors.FieldError{Field: "progress", Message: "must be between 0 and 100"})
	}
	if r.TimeSpent < 0 {
		fields = append(fields, errors.FieldError{Field: "timeSpent", Message: "must be greater than or equal to 0"})
	}

	if len(fields) > 0 {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid lesson progress"),
			errors.WithFields(fields...),
		)
	}

	return nil
}

// UpdateProgress upserts the user's progress on a lesson. Progress never moves
// backwards and time spent accumulates. The first completion of a lesson awards
// its points, later completions award nothing. Every update counts as activity
// for the daily streak.
func (s *Service) UpdateProgress(ctx context.Context, req UpdateProgressRequest) (*domain.LessonProgress, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if !postgres.IsUUID(req.LessonID) {
		return nil, errors.NotFound("lesson not found: id=%s", req.LessonID)
	}

	now := s.now()
	progress := req.Progress
	var completedAt *time.Time
	if req.Status == domain.LessonCompleted {
		progress = 100
		completedAt = &now
	}

	var (
		p       domain.LessonProgress
		awarded []domain.BadgeKind
	)
	err := postgres.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.gu.Lock(ctx, tx, req.UserID); err != nil {
			return postgres.NotFound(err, "user not found: id=%s", req.UserID)
		}

		var points int
		err := tx.QueryRow(ctx, `SELECT points_reward FROM lessons WHERE id = $1 AND published;`, req.LessonID).Scan(&points)
		if err != nil {
			return postgres.NotFound(err, "lesson not found: id=%s", req.LessonID)
		}

		var wasCompleted bool
		err = tx.QueryRow(ctx, `SELECT completed_at IS NOT NULL FROM lesson_progress WHERE user_id = $1 AND lesson_id = $2;`,
			req.UserID, req.LessonID).Scan(&wasCompleted)
		if err != nil && !stderrors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("read progress: %w", err)
		}

		const upsert = `
INSERT INTO lesson_progress (user_id, lesson_id, status, progress, time_spent_seconds, completed_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, lesson_id) DO UPDATE SET
	status             = EXCLUDED.status,
	progress           = GREATEST(lesson_progress.progress, EXCLUDED.progress),
	time_spent_seconds = lesson_progress.time_spent_seconds + EXCLUDED.time_spent_seconds,
	completed_at       = COALESCE(lesson_progress.completed_at, EXCLUDED.completed_at),
	updated_at         = EXCLUDED.updated_at
RETURNING user_id, lesson_id, status, progress, time_spent_seconds, completed_at, updated_at;`

		rows, err := tx.Query(ctx, upsert, req.UserID, req.LessonID, string(req.Status), progress, req.TimeSpent, completedAt, now)
		if err != nil {
			return fmt.Errorf("upsert progress: %w", err)
		}
		p, err = pgx.CollectExactlyOneRow(rows, scanProgress)
		if err != nil {
			return fmt.Errorf("upsert progress: %w", err)
		}

		if err := s.gu.TouchActivity(ctx, tx, req.UserID); err != nil {
			return err
		}

		if req.Status == domain.LessonCompleted && !wasCompleted {
			if err := s.gu.AwardPoints(ctx, tx, req.UserID, points, "lesson:"+req.LessonID); err != nil {
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

	return &p, nil
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
