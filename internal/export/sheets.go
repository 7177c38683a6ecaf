package export

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// SheetsWriter implements SheetWriter using the Google Sheets API. Rows are
// appended so the sheet accumulates a quote history.
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsWriter creates a SheetsWriter authenticated with a service account JSON.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsWriter, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}, nil
}

// Write appends rows, creating the sheet with a header row on first use.
func (w *SheetsWriter) Write(ctx context.Context, rows []QuoteRow) error {
	created, err := w.ensureSheet(ctx, SheetName)
	if err != nil {
		return err
	}

	values := lo.Map(rows, func(r QuoteRow, _ int) []any { return r.values() })
	if created {
		values = append([][]any{header}, values...)
	}

	_, err = w.svc.Spreadsheets.Values.Append(
		w.spreadsheetID,
		SheetName+"!A1",
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending quote rows: %w", err)
	}
	return nil
}

// ensureSheet creates the named sheet if it does not already exist.
func (w *SheetsWriter) ensureSheet(ctx context.Context, name string) (bool, error) {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	exists := lo.ContainsBy(spreadsheet.Sheets, func(s *sheets.Sheet) bool {
		return s.Properties != nil && s.Properties.Title == name
	})
	if exists {
		return false, nil
	}

	_, err = w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: name},
			},
		}}},
	).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("creating sheet %s: %w", name, err)
	}
	return true, nil
}
