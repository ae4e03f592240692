package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicesnap/internal/backup"
	"invoicesnap/internal/config"
	"invoicesnap/internal/invoice"
	"invoicesnap/internal/storage"
	"invoicesnap/internal/store"
	"invoicesnap/pkg/models"
)

// app bundles what most commands need: configuration, the database and the
// record store on top of it.
type app struct {
	cfg      *config.Config
	kv       *storage.SQLiteKV
	store    *store.Store
	resolver *config.CredentialResolver
	log      zerolog.Logger
}

func openApp(ctx context.Context, cmd *cobra.Command, log zerolog.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DatabasePath = db
	}

	kv, err := storage.OpenSQLite(ctx, cfg.DatabasePath)
	if err != nil {
		log.Error().Err(err).Str("db", cfg.DatabasePath).Msg("Failed to open database")
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.DatabasePath, err)
	}

	st, err := store.Open(ctx, kv)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}

	return &app{
		cfg:      cfg,
		kv:       kv,
		store:    st,
		resolver: config.NewCredentialResolver(kv),
		log:      log,
	}, nil
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close database")
	}
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// confirm asks a yes/no question on out and reads the answer from in.
// Anything but y/yes is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// readRecordFile reads a single record (a draft or an exported record) from
// path, or stdin for "-".
func readRecordFile(path string) (models.InvoiceRecord, error) {
	var rec models.InvoiceRecord

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(os.Stdin, backup.MaxSize))
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return rec, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("%s is not an invoice record: %w", path, err)
	}
	if rec.Items == nil {
		rec.Items = []models.InvoiceItem{}
	}
	if rec.Type == "" {
		rec.Type = models.Triplicate
	}
	return rec, nil
}

func writeRecordFile(path string, rec models.InvoiceRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// handleStoreError provides user-friendly error messages for store failures
func handleStoreError(err error, id string, log zerolog.Logger) error {
	log.Error().Err(err).Str("id", id).Msg("Store operation failed")

	var vErr *invoice.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("no invoice with id %s. Use 'invoicesnap list' to see ids", id)
	case errors.As(err, &vErr):
		return fmt.Errorf("cannot save: %s is required", vErr.Field)
	case errors.Is(err, invoice.ErrItemIndex):
		return fmt.Errorf("no such item: %w", err)
	case errors.Is(err, storage.ErrClosed):
		return fmt.Errorf("database is closed")
	default:
		return fmt.Errorf("invoice store: %w", err)
	}
}
