package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"invoicesnap/internal/logger"
)

// SQLiteKV keeps values in a single sqlite table.
type SQLiteKV struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at dbPath and migrates it.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLiteKV, error) {
	log := logger.WithComponent("storage")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	log.Debug().Str("path", dbPath).Msg("Opened key-value database")

	return &SQLiteKV{db: db, log: log, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *SQLiteKV) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.db == nil {
		return nil, false, &StorageError{Op: "get", Key: key, Err: ErrClosed}
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &StorageError{Op: "get", Key: key, Err: err}
	}
	return value, true, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key string, value []byte) error {
	if s.db == nil {
		return &StorageError{Op: "set", Key: key, Err: ErrClosed}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UnixMilli())
	if err != nil {
		return &StorageError{Op: "set", Key: key, Err: err}
	}

	s.log.Debug().Str("key", key).Int("bytes", len(value)).Msg("Stored value")
	return nil
}

func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	if s.db == nil {
		return &StorageError{Op: "delete", Key: key, Err: ErrClosed}
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}
