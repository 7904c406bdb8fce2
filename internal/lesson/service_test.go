package lesson_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/errors"
	"github.com/eduverse/typehub/internal/gamification"
	"github.com/eduverse/typehub/internal/lesson"
	"github.com/eduverse/typehub/internal/postgres/pgtest"
)

func TestService_UpdateProgress_Validation(t *testing.T) {
	s := lesson.NewService(lesson.Config{})

	tests := map[string]struct {
		req   lesson.UpdateProgressRequest
		field string
	}{
		"unknown status": {
			req:   lesson.UpdateProgressRequest{Status: "done", LessonID: "x"},
			field: "status",
		},
		"progress above 100": {
			req:   lesson.UpdateProgressRequest{Status: domain.LessonInProgress, Progress: 101},
			field: "progress",
		},
		"negative time": {
			req:   lesson.UpdateProgressRequest{Status: domain.LessonInProgress, TimeSpent: -5},
			field: "timeSpent",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.UpdateProgress(context.Background(), test.req)
			require.Error(t, err)

			e := errors.Convert(err)
			require.Equal(t, errors.CodeInvalidArgument, e.Code)
			require.Len(t, e.Fields, 1)
			require.Equal(t, test.field, e.Fields[0].Field)
		})
	}
}

func TestService_UpdateProgress_MalformedLessonID(t *testing.T) {
	s := lesson.NewService(lesson.Config{})

	_, err := s.UpdateProgress(context.Background(), lesson.UpdateProgressRequest{
		UserID:   "u1",
		LessonID: "not-a-uuid",
		Status:   domain.LessonInProgress,
	})
	require.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestService_UpdateProgress(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()
	user := pgtest.CreateUser(t, db, "learner")
	lessonID := pgtest.CreateLesson(t, db, 50)

	s := lesson.NewService(lesson.Config{
		DB:           db,
		Gamification: gamification.NewUpdater(gamification.Config{}),
	})

	update := func(status domain.LessonStatus, progress, spent int) *domain.LessonProgress {
		p, err := s.UpdateProgress(ctx, lesson.UpdateProgressRequest{
			UserID:    user,
			LessonID:  lessonID,
			Status:    status,
			Progress:  progress,
			TimeSpent: spent,
		})
		require.NoError(t, err)
		return p
	}

	p := update(domain.LessonInProgress, 60, 30)
	require.Equal(t, 60, p.Progress)
	require.Nil(t, p.CompletedAt)

	p = update(domain.LessonInProgress, 20, 15)
	require.Equal(t, 60, p.Progress, "progress never decreases")
	require.Equal(t, 45, p.TimeSpent)

	p = update(domain.LessonCompleted, 100, 10)
	require.Equal(t, domain.LessonCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)

	update(domain.LessonCompleted, 100, 0)

	var points int
	require.NoError(t, db.QueryRow(ctx, `SELECT total_points FROM users WHERE id = $1`, user).Scan(&points))
	require.Equal(t, 50, points, "points are awarded on the first completion only")

	var hasBadge bool
	require.NoError(t, db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_badges WHERE user_id = $1 AND badge = $2)`,
		user, string(domain.BadgeFirstLesson)).Scan(&hasBadge))
	require.True(t, hasBadge)

	progress, err := s.ListProgress(ctx, user)
	require.NoError(t, err)
	require.Len(t, progress, 1)
	require.Equal(t, 55, progress[0].TimeSpent)
}

func TestService_UpdateProgress_UnknownLesson(t *testing.T) {
	db := pgtest.Open(t)
	user := pgtest.CreateUser(t, db, "learner")

	s := lesson.NewService(lesson.Config{
		DB:           db,
		Gamification: gamification.NewUpdater(gamification.Config{}),
	})

	_, err := s.UpdateProgress(context.Background(), lesson.UpdateProgressRequest{
		UserID:   user,
		LessonID: "00000000-0000-0000-0000-000000000000",
		Status:   domain.LessonInProgress,
	})
	require.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestService_UpdateProgress_TouchesStreak(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()
	user := pgtest.CreateUser(t, db, "learner")
	lessonID := pgtest.CreateLesson(t, db, 50)

	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	s := lesson.NewService(lesson.Config{
		DB:           db,
		Gamification: gamification.NewUpdater(gamification.Config{Now: func() time.Time { return now }}),
		Now:          func() time.Time { return now },
	})

	streak := func() (int, *time.Time) {
		var (
			days int
			last *time.Time
		)
		require.NoError(t, db.QueryRow(ctx,
			`SELECT streak_days, last_activity_at FROM users WHERE id = $1`, user).Scan(&days, &last))
		return days, last
	}

	_, err := s.UpdateProgress(ctx, lesson.UpdateProgressRequest{
		UserID:   user,
		LessonID: lessonID,
		Status:   domain.LessonInProgress,
		Progress: 10,
	})
	require.NoError(t, err)

	days, last := streak()
	require.Equal(t, 1, days)
	require.NotNil(t, last)
	require.True(t, now.Equal(*last))

	now = now.Add(24 * time.Hour)
	_, err = s.UpdateProgress(ctx, lesson.UpdateProgressRequest{
		UserID:   user,
		LessonID: lessonID,
		Status:   domain.LessonInProgress,
		Progress: 20,
	})
	require.NoError(t, err)

	days, _ = streak()
	require.Equal(t, 2, days, "a lesson on the next day extends the streak")
}

func TestService_UpdateProgress_UnpublishedLesson(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()
	user := pgtest.CreateUser(t, db, "learner")
	lessonID := pgtest.CreateLesson(t, db, 50)
	_, err := db.Exec(ctx, `UPDATE lessons SET published = false WHERE id = $1`, lessonID)
	require.NoError(t, err)

	s := lesson.NewService(lesson.Config{
		DB:           db,
		Gamification: gamification.NewUpdater(gamification.Config{}),
	})

	_, err = s.UpdateProgress(ctx, lesson.UpdateProgressRequest{
		UserID:   user,
		LessonID: lessonID,
		Status:   domain.LessonCompleted,
	})
	require.True(t, errors.Is(err, errors.CodeNotFound))

	var points int
	require.NoError(t, db.QueryRow(ctx, `SELECT total_points FROM users WHERE id = $1`, user).Scan(&points))
	require.Zero(t, points)
}
