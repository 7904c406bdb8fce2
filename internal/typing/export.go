package typing

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/eduverse/typehub/internal/domain"
)

const exportSheet = "Sheet1"

// exportPage is the number of results read per query while exporting.
var exportPage = 1000

var exportHeader = []any{"Date", "Kind", "WPM", "Accuracy", "Duration (s)", "Characters", "Errors", "Mode / Language"}

// Export writes the user's full result history as an xlsx workbook to w. The
// history is read page by page, newest first.
func (s *Service) Export(ctx context.Context, userID string, w io.Writer) error {
	var tests []domain.TypingTest
	for offset := 0; ; offset += exportPage {
		page, err := s.listResults(ctx, userID, "", exportPage, offset)
		if err != nil {
			return err
		}
		tests = append(tests, page...)
		if len(page) < exportPage {
			break
		}
	}

	return WriteWorkbook(w, tests)
}

// WriteWorkbook renders tests as a single-sheet workbook, one row per test.
func WriteWorkbook(w io.Writer, tests []domain.TypingTest) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}

	for i, tt := range tests {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export: cell: %w", err)
		}

		label := tt.Mode
		if tt.Kind == domain.TestKindCode {
			label = tt.Language
		}

		row := []any{
			tt.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			string(tt.Kind),
			tt.WPM,
			tt.Accuracy,
			tt.Duration,
			tt.Characters,
			tt.Errors,
			label,
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("export: row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}

	return nil
}
