// Package backup exports the invoice collection as a pretty-printed JSON file
// and imports such a file back as a full overwrite.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"invoicesnap/internal/logger"
	"invoicesnap/pkg/models"
)

var (
	// ErrMalformed is returned when the backup is not valid JSON or holds
	// entries that are not invoice records.
	ErrMalformed = errors.New("backup is not valid invoice JSON")

	// ErrNotArray is returned when the backup parses but is not a JSON array.
	ErrNotArray = errors.New("backup must be a JSON array of invoices")

	// ErrImportDeclined is returned when the user does not confirm the overwrite.
	ErrImportDeclined = errors.New("import declined")
)

// MaxSize bounds the backup files accepted by Decode.
const MaxSize = 256 << 20

// FileName returns the export file name for the day of now, e.g.
// invoice_backup_2024-05-02.json.
func FileName(now time.Time) string {
	return fmt.Sprintf("invoice_backup_%s.json", now.Format("2006-01-02"))
}

// Export writes records as a JSON array indented with two spaces.
func Export(w io.Writer, records []models.InvoiceRecord) error {
	if records == nil {
		records = []models.InvoiceRecord{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("export: encode records: %w", err)
	}
	return nil
}

// Decode reads a backup. Nothing is returned unless the whole content is a
// JSON array of records.
func Decode(r io.Reader) ([]models.InvoiceRecord, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("import: read backup: %w", err)
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("import: backup exceeds %d bytes: %w", MaxSize, ErrMalformed)
	}

	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("import: %v: %w", err, ErrMalformed)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}

	var records []models.InvoiceRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("import: %v: %w", err, ErrMalformed)
	}
	if records == nil {
		records = []models.InvoiceRecord{}
	}
	return records, nil
}

// Replacer is the store operation an import needs.
type Replacer interface {
	ReplaceAll(ctx context.Context, records []models.InvoiceRecord) error
}

// ConfirmFunc asks the user to approve overwriting the store with count records.
type ConfirmFunc func(count int) (bool, error)

// Import overwrites dst with records after confirm approves. A declined or
// failed confirmation leaves dst untouched.
func Import(ctx context.Context, dst Replacer, records []models.InvoiceRecord, confirm ConfirmFunc) error {
	log := logger.WithComponent("backup")

	if confirm != nil {
		ok, err := confirm(len(records))
		if err != nil {
			return fmt.Errorf("import: confirm: %w", err)
		}
		if !ok {
			log.Info().Int("records", len(records)).Msg("Import declined")
			return ErrImportDeclined
		}
	}

	if err := dst.ReplaceAll(ctx, records); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	log.Info().Int("records", len(records)).Msg("Imported backup")
	return nil
}
