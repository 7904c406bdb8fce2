package certificate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eduverse/typehub/internal/certificate"
	"github.com/eduverse/typehub/internal/errors"
	"github.com/eduverse/typehub/internal/postgres/pgtest"
)

func TestService_Issue(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()
	user := pgtest.CreateUser(t, db, "graduate")
	lesson := pgtest.CreateLesson(t, db, 50)

	s := certificate.NewService(certificate.Config{DB: db})

	_, err := s.Issue(ctx, user, lesson)
	require.True(t, errors.Is(err, errors.CodeInvalidArgument), "lesson not completed yet")

	_, err = db.Exec(ctx, `INSERT INTO lesson_progress (user_id, lesson_id, status, progress, completed_at) VALUES ($1, $2, 'completed', 100, now())`, user, lesson)
	require.NoError(t, err)

	c, err := s.Issue(ctx, user, lesson)
	require.NoError(t, err)
	require.Equal(t, "graduate", c.Username)
	require.Len(t, c.ShareToken, 32)

	_, err = s.Issue(ctx, user, lesson)
	require.True(t, errors.Is(err, errors.CodeAlreadyExists))

	shared, err := s.Shared(ctx, c.ShareToken)
	require.NoError(t, err)
	require.Equal(t, c.ID, shared.ID)

	_, err = s.Shared(ctx, "unknown")
	require.True(t, errors.Is(err, errors.CodeNotFound))

	certs, err := s.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, certs, 1)
}

func TestService_Issue_MalformedLesson(t *testing.T) {
	s := certificate.NewService(certificate.Config{})

	_, err := s.Issue(context.Background(), "u1", "bad")
	require.True(t, errors.Is(err, errors.CodeNotFound))
}
