package typing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eduverse/typehub/internal/domain"
	"github.com/eduverse/typehub/internal/gamification"
	"github.com/eduverse/typehub/internal/postgres/pgtest"
)

func TestService_Export_ReadsEveryPage(t *testing.T) {
	db := pgtest.Open(t)
	ctx := context.Background()
	user := pgtest.CreateUser(t, db, "exporter")

	prev := exportPage
	exportPage = 2
	t.Cleanup(func() { exportPage = prev })

	s := NewService(Config{
		DB:           db,
		Gamification: gamification.NewUpdater(gamification.Config{}),
	})
	for i := 0; i < 5; i++ {
		_, err := s.SubmitResult(ctx, SubmitResultRequest{
			UserID:   user,
			Kind:     domain.TestKindTyping,
			WPM:      30 + i,
			Accuracy: 90,
			Duration: 60,
		})
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	require.NoError(t, s.Export(ctx, user, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6, "header plus every result")
}
