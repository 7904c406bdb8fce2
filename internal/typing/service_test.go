package typing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/errors"
	"github.com/eduverse/typehub/internal/gamification"
	"github.com/eduverse/typehub/internal/postgres/pgtest"
	"github.com/eduverse/typehub/internal/typing"
)

func TestService_SubmitResult_Validation(t *testing.T) {
	s := typing.NewService(typing.Config{})

	_, err := s.SubmitResult(context.Background(), typing.SubmitResultRequest{
		UserID:   "u1",
		Kind:     domain.TestKindTyping,
		WPM:      -1,
		Accuracy: 101,
		Duration: 0,
	})
	require.Error(t, err)

	e := errors.Convert(err)
	require.Equal(t, errors.CodeInvalidArgument, e.Code)

	var fields []string
	for _, f := range e.Fields {
		fields = append(fields, f.Field)
	}
	require.ElementsMatch(t, []string{"wpm", "accuracy", "duration"}, fields)
}

func TestService_SubmitResult_FieldsPerKind(t *testing.T) {
	s := typing.NewService(typing.Config{})

	tests := map[string]struct {
		req   typing.SubmitResultRequest
		field string
	}{
		"language on a typing result": {
			req:   typing.SubmitResultRequest{Kind: domain.TestKindTyping, Accuracy: 90, Duration: 30, Language: "go"},
			field: "language",
		},
		"mode on a code result": {
			req:   typing.SubmitResultRequest{Kind: domain.TestKindCode, Accuracy: 90, Duration: 30, Mode: "words"},
			field: "mode",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			test.req.UserID = "u1"
			_, err := s.SubmitResult(context.Background(), test.req)

			e := errors.Convert(err)
			require.Equal(t, errors.CodeInvalidArgument, e.Code)
			require.Len(t, e.Fields, 1)
			require.Equal(t, test.field, e.Fields[0].Field)
		})
	}
}

func TestService_SubmitResult(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()
	user := pgtest.CreateUser(t, db, "typist")

	s := typing.NewService(typing.Config{
		DB:           db,
		Gamification: gamification.NewUpdater(gamification.Config{}),
	})

	submit := func(kind domain.TestKind, wpm int) *domain.TypingTest {
		req := typing.SubmitResultRequest{
			UserID:   user,
			Kind:     kind,
			WPM:      wpm,
			Accuracy: 96,
			Duration: 60,
		}
		if kind == domain.TestKindCode {
			req.Language = "go"
		} else {
			req.Mode = "words"
		}
		tt, err := s.SubmitResult(ctx, req)
		require.NoError(t, err)
		return tt
	}

	first := submit(domain.TestKindTyping, 50)
	second := submit(domain.TestKindTyping, 50)
	require.NotEqual(t, first.ID, second.ID, "duplicate submissions are separate rows")

	for i := 0; i < 7; i++ {
		submit(domain.TestKindTyping, 40)
	}
	submit(domain.TestKindCode, 70)

	st, err := s.Statistics(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 10, st.TotalTests)
	require.Equal(t, 9, st.TypingTests)
	require.Equal(t, 1, st.CodeTests)
	require.Equal(t, 70, st.BestWPM)
	require.Equal(t, 600, st.TotalTypingSeconds)
	require.Equal(t, 1, st.StreakDays)
	require.Len(t, st.Recent, 10)
	require.Equal(t, domain.TestKindCode, st.Recent[0].Kind)

	var badges []string
	rows, err := db.Query(ctx, `SELECT badge FROM user_badges WHERE user_id = $1 ORDER BY badge`, user)
	require.NoError(t, err)
	for rows.Next() {
		var b string
		require.NoError(t, rows.Scan(&b))
		badges = append(badges, b)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{string(domain.BadgeFastFingers), string(domain.BadgeTypingRookie)}, badges)

	codeOnly, err := s.ListResults(ctx, typing.ListResultsRequest{UserID: user, Kind: domain.TestKindCode})
	require.NoError(t, err)
	require.Len(t, codeOnly, 1)
	require.Equal(t, "go", codeOnly[0].Language)
}
