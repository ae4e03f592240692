package sheets

import (
	"context"
	"fmt"
	"strings"

	"invoicesnap/pkg/models"
)

// idColumn is the zero-based column of the record id (K).
const idColumn = 10

// ReadRange reads values from a specified range in the spreadsheet
func (s *Service) ReadRange(ctx context.Context, a1Range string) ([][]interface{}, error) {
	const op = "ReadRange"

	s.log.Debug().
		Str("range", a1Range).
		Msg("Reading range from spreadsheet")

	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, a1Range).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read range %s: %w", op, a1Range, err)
	}

	s.log.Debug().
		Int("rows", len(resp.Values)).
		Str("range", a1Range).
		Msg("Successfully read range from spreadsheet")

	return resp.Values, nil
}

// PushedIDs returns the record ids already present in sheetName. A worksheet
// that does not exist yet has none.
func (s *Service) PushedIDs(ctx context.Context, sheetName string) (map[string]bool, error) {
	const op = "PushedIDs"

	exists, err := s.sheetExists(ctx, sheetName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return map[string]bool{}, nil
	}

	values, err := s.ReadRange(ctx, sheetName+"!A:"+lastColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := idsFromRows(values)
	s.log.Info().
		Int("total_rows", len(values)).
		Int("ids", len(ids)).
		Str("sheet", sheetName).
		Msg("Read pushed invoice ids")
	return ids, nil
}

func (s *Service) sheetExists(ctx context.Context, sheetName string) (bool, error) {
	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			return true, nil
		}
	}
	return false, nil
}

// idsFromRows collects the id column of data rows. The header row and rows
// too short to carry an id are skipped.
func idsFromRows(values [][]interface{}) map[string]bool {
	ids := map[string]bool{}
	for i, row := range values {
		if i == 0 && getString(row, 0) == Headers[0] {
			continue
		}
		if id := getString(row, idColumn); id != "" {
			ids[id] = true
		}
	}
	return ids
}

// Unpushed returns the records whose id is not in pushed, keeping their order.
func Unpushed(records []models.InvoiceRecord, pushed map[string]bool) []models.InvoiceRecord {
	out := make([]models.InvoiceRecord, 0, len(records))
	for _, r := range records {
		if r.ID != "" && pushed[r.ID] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// getString safely extracts a string value from a row slice
func getString(row []interface{}, index int) string {
	if index >= len(row) || row[index] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", row[index]))
}
