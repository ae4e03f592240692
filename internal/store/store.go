// Package store holds the committed invoice records in memory, most recent
// first, and writes the whole collection through to a storage.KV after every
// mutation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"invoicesnap/internal/invoice"
	"invoicesnap/internal/logger"
	"invoicesnap/internal/storage"
	"invoicesnap/pkg/models"
)

// DataKey is the storage key the record collection lives under.
const DataKey = "invoicesnap_data"

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("invoice record not found")

// StoreError wraps a failed store operation.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("store: %s %s failed: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("store: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store is the invoice collection. It is safe for concurrent use; every
// mutation is a read-modify-write followed by a flush, under one lock.
type Store struct {
	mu      sync.Mutex
	kv      storage.KV
	records []models.InvoiceRecord

	now   func() time.Time
	newID func() string
	log   zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the function minting record ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New returns an empty store backed by kv. Call Load to read persisted records.
func New(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:      kv,
		records: []models.InvoiceRecord{},
		now:     time.Now,
		newID:   uuid.NewString,
		log:     logger.WithComponent("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a store and loads the persisted collection.
func Open(ctx context.Context, kv storage.KV, opts ...Option) (*Store, error) {
	s := New(kv, opts...)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the in-memory collection with the persisted one. Absent or
// corrupt content yields an empty collection; only storage failures are errors.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := s.kv.Get(ctx, DataKey)
	if err != nil {
		return &StoreError{Op: "load", Err: err}
	}
	if !ok {
		s.records = []models.InvoiceRecord{}
		return nil
	}

	var records []models.InvoiceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Warn().Err(err).Int("bytes", len(data)).Msg("Stored invoices are unreadable, starting empty")
		records = nil
	}
	if records == nil {
		records = []models.InvoiceRecord{}
	}
	s.records = records

	s.log.Debug().Int("records", len(records)).Msg("Loaded invoices")
	return nil
}

// Flush writes the current collection to storage.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush(ctx, s.records)
}

func (s *Store) flush(ctx context.Context, records []models.InvoiceRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return &StoreError{Op: "flush", Err: err}
	}
	if err := s.kv.Set(ctx, DataKey, data); err != nil {
		return &StoreError{Op: "flush", Err: err}
	}
	return nil
}

// commit persists next and only then makes it the in-memory state, so a failed
// flush leaves memory and storage agreeing on the previous collection.
func (s *Store) commit(ctx context.Context, next []models.InvoiceRecord) error {
	if err := s.flush(ctx, next); err != nil {
		return err
	}
	s.records = next
	return nil
}

// List returns copies of all records, most recently created first.
func (s *Store) List() []models.InvoiceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.InvoiceRecord, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// FindByID returns a copy of the record with id.
func (s *Store) FindByID(id string) (models.InvoiceRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		return s.records[i].Clone(), true
	}
	return models.InvoiceRecord{}, false
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// prepare validates rec and re-derives its totals.
func prepare(rec models.InvoiceRecord) (models.InvoiceRecord, error) {
	rec = rec.Clone()
	if err := invoice.Validate(rec); err != nil {
		return rec, err
	}
	if rec.Items == nil {
		rec.Items = []models.InvoiceItem{}
	}
	invoice.Recompute(&rec)
	return rec, nil
}

// Create commits rec as a new record with a fresh id and createdAt = now,
// inserted at the head of the list. Any id already on rec is ignored.
func (s *Store) Create(ctx context.Context, rec models.InvoiceRecord) (models.InvoiceRecord, error) {
	rec, err := prepare(rec)
	if err != nil {
		return rec, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.newID()
	rec.CreatedAt = s.now().UnixMilli()
	if err := s.insert(ctx, rec); err != nil {
		return rec, err
	}
	return rec.Clone(), nil
}

// Update replaces the full contents of the record with id, keeping its id,
// position and original createdAt.
func (s *Store) Update(ctx context.Context, id string, rec models.InvoiceRecord) (models.InvoiceRecord, error) {
	rec, err := prepare(rec)
	if err != nil {
		return rec, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return rec, &StoreError{Op: "update", ID: id, Err: ErrNotFound}
	}
	rec.ID = id
	if err := s.replace(ctx, i, rec); err != nil {
		return rec, err
	}
	return s.records[i].Clone(), nil
}

// Save is an upsert keyed by id. A record without id is created; a record
// whose id exists replaces it in place; an unknown id is inserted at the head
// keeping that id.
func (s *Store) Save(ctx context.Context, rec models.InvoiceRecord) (models.InvoiceRecord, error) {
	rec, err := prepare(rec)
	if err != nil {
		return rec, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = s.newID()
		rec.CreatedAt = s.now().UnixMilli()
		if err := s.insert(ctx, rec); err != nil {
			return rec, err
		}
		return rec.Clone(), nil
	}

	if i := s.indexOf(rec.ID); i >= 0 {
		if err := s.replace(ctx, i, rec); err != nil {
			return rec, err
		}
		return s.records[i].Clone(), nil
	}

	if rec.CreatedAt == 0 {
		rec.CreatedAt = s.now().UnixMilli()
	}
	if err := s.insert(ctx, rec); err != nil {
		return rec, err
	}
	return rec.Clone(), nil
}

func (s *Store) insert(ctx context.Context, rec models.InvoiceRecord) error {
	next := make([]models.InvoiceRecord, 0, len(s.records)+1)
	next = append(next, rec)
	next = append(next, s.records...)
	if err := s.commit(ctx, next); err != nil {
		return err
	}

	l := logger.WithRecord("store", rec.ID)
	l.Info().Str("invoice_number", rec.InvoiceNumber).Msg("Created invoice")
	return nil
}

func (s *Store) replace(ctx context.Context, i int, rec models.InvoiceRecord) error {
	if orig := s.records[i].CreatedAt; orig != 0 {
		rec.CreatedAt = orig
	} else if rec.CreatedAt == 0 {
		rec.CreatedAt = s.now().UnixMilli()
	}

	next := make([]models.InvoiceRecord, len(s.records))
	copy(next, s.records)
	next[i] = rec
	if err := s.commit(ctx, next); err != nil {
		return err
	}

	l := logger.WithRecord("store", rec.ID)
	l.Info().Int("position", i).Msg("Updated invoice")
	return nil
}

// Delete removes the record with id. Deleting an absent id is not an error.
// Callers confirm with the user before calling.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.log.Debug().Str("record_id", id).Msg("Delete of absent invoice ignored")
		return nil
	}

	next := make([]models.InvoiceRecord, 0, len(s.records)-1)
	next = append(next, s.records[:i]...)
	next = append(next, s.records[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return err
	}

	s.log.Info().Str("record_id", id).Msg("Deleted invoice")
	return nil
}

// Rename replaces only the buyer name of the record with id. Nothing else,
// derived totals included, is touched.
func (s *Store) Rename(ctx context.Context, id, buyerName string) (models.InvoiceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.InvoiceRecord{}, &StoreError{Op: "rename", ID: id, Err: ErrNotFound}
	}

	next := make([]models.InvoiceRecord, len(s.records))
	copy(next, s.records)
	next[i].BuyerName = buyerName
	if err := s.commit(ctx, next); err != nil {
		return models.InvoiceRecord{}, err
	}
	return s.records[i].Clone(), nil
}

// ReplaceAll overwrites the whole collection with records, in the given order.
// Records are stored exactly as given. Callers confirm with the user before
// calling.
func (s *Store) ReplaceAll(ctx context.Context, records []models.InvoiceRecord) error {
	next := make([]models.InvoiceRecord, len(records))
	for i, r := range records {
		next[i] = r.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := len(s.records)
	if err := s.commit(ctx, next); err != nil {
		return err
	}

	s.log.Info().Int("previous", previous).Int("records", len(next)).Msg("Replaced all invoices")
	return nil
}
