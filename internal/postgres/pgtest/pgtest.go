// Package pgtest provides helpers for tests that need a real postgres database.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/eduverse/typehub/internal/postgres"
)

// Open connects to TEST_DATABASE_URL and applies migrations, skipping the test when unset.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	ctx := context.Background()
	db, err := postgres.ConnectURL(ctx, url)
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(ctx, db))
	t.Cleanup(db.Close)

	return db
}

// CreateUser inserts a user with a unique email and returns its id. The user is
// removed when the test ends.
func CreateUser(t *testing.T, db *pgxpool.Pool, username string) string {
	t.Helper()

	ctx := context.Background()
	id := uuid.New().String()
	_, err := db.Exec(ctx, `INSERT INTO users (id, email, username, password_hash) VALUES ($1, $2, $3, 'x')`,
		id, id+"@example.test", username)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})

	return id
}

// CreateLesson inserts a lesson with the given reward and returns its id.
func CreateLesson(t *testing.T, db *pgxpool.Pool, points int) string {
	t.Helper()

	ctx := context.Background()
	var id string
	slug := "lesson-" + uuid.NewString()
	err := db.QueryRow(ctx, `INSERT INTO lessons (slug, title, points_reward) VALUES ($1, $2, $3) RETURNING id`,
		slug, "Lesson "+slug[:12], points).Scan(&id)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM lessons WHERE id = $1`, id)
	})

	return id
}

// CreateQuiz inserts a quiz with one question per entry of correct, each having
// four options, and returns the quiz id and question ids in order.
func CreateQuiz(t *testing.T, db *pgxpool.Pool, passScore, points int, correct ...int) (string, []string) {
	t.Helper()

	ctx := context.Background()
	var id string
	slug := "quiz-" + uuid.NewString()
	err := db.QueryRow(ctx, `INSERT INTO quizzes (slug, title, pass_score, points_reward) VALUES ($1, $2, $3, $4) RETURNING id`,
		slug, "Quiz "+slug[:10], passScore, points).Scan(&id)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM quizzes WHERE id = $1`, id)
	})

	questions := make([]string, 0, len(correct))
	for i, c := range correct {
		var qid string
		err := db.QueryRow(ctx, `INSERT INTO quiz_questions (quiz_id, position, text, options, correct_index) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			id, i, "Question", []string{"a", "b", "c", "d"}, c).Scan(&qid)
		require.NoError(t, err)
		questions = append(questions, qid)
	}

	return id, questions
}

// CreateChallenge inserts a challenge expecting output and returns its id.
func CreateChallenge(t *testing.T, db *pgxpool.Pool, output string, points int) string {
	t.Helper()

	ctx := context.Background()
	var id string
	slug := "challenge-" + uuid.NewString()
	err := db.QueryRow(ctx, `INSERT INTO challenges (slug, title, expected_output, points_reward) VALUES ($1, $2, $3, $4) RETURNING id`,
		slug, "Challenge "+slug[:15], output, points).Scan(&id)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM challenges WHERE id = $1`, id)
	})

	return id
}
