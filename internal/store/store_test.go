package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicesnap/internal/invoice"
	"invoicesnap/internal/storage"
	"invoicesnap/pkg/models"
)

type failingKV struct {
	*storage.MemoryKV
	fail bool
}

var errDiskFull = errors.New("disk full")

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errDiskFull
	}
	return f.MemoryKV.Set(ctx, key, value)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore(t *testing.T, kv storage.KV) (*Store, *clock) {
	t.Helper()
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	n := 0
	s, err := Open(context.Background(), kv,
		WithClock(c.now),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
	require.NoError(t, err)
	return s, c
}

func draft(number, date string, items ...models.InvoiceItem) models.InvoiceRecord {
	rec := models.InvoiceRecord{InvoiceNumber: number, Date: date, Type: models.Triplicate}
	for _, it := range items {
		invoice.AddItem(&rec, it)
	}
	return rec
}

func TestSaveNewDraftThenFind(t *testing.T) {
	ctx := context.Background()
	s, c := newTestStore(t, storage.NewMemoryKV())

	saved, err := s.Save(ctx, draft("AB12345678", "2024-01-15", models.InvoiceItem{Quantity: 2, UnitPrice: 100}))
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, c.t.UnixMilli(), saved.CreatedAt)

	found, ok := s.FindByID(saved.ID)
	require.True(t, ok)
	assert.Equal(t, saved, found)
	assert.Equal(t, 210.0, found.Total)
}

func TestSaveExistingPreservesIdentityAndPosition(t *testing.T) {
	ctx := context.Background()
	s, c := newTestStore(t, storage.NewMemoryKV())

	a, err := s.Save(ctx, draft("AA00000001", "2024-01-01"))
	require.NoError(t, err)
	c.t = c.t.Add(time.Minute)
	b, err := s.Save(ctx, draft("AA00000002", "2024-01-02"))
	require.NoError(t, err)
	c.t = c.t.Add(time.Minute)
	_, err = s.Save(ctx, draft("AA00000003", "2024-01-03"))
	require.NoError(t, err)

	edited := b.Clone()
	edited.InvoiceNumber = "ZZ99999999"
	edited.CreatedAt = 0
	invoice.AddItem(&edited, models.InvoiceItem{Quantity: 1, UnitPrice: 40})
	c.t = c.t.Add(time.Hour)

	got, err := s.Save(ctx, edited)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, b.CreatedAt, got.CreatedAt)
	assert.Equal(t, "ZZ99999999", got.InvoiceNumber)

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "AA00000003", list[0].InvoiceNumber)
	assert.Equal(t, b.ID, list[1].ID)
	assert.Equal(t, 42.0, list[1].Total)
	assert.Equal(t, a.ID, list[2].ID)
}

func TestSaveUnknownIDInsertsAtHead(t *testing.T) {
	ctx := context.Background()
	s, c := newTestStore(t, storage.NewMemoryKV())
	_, err := s.Save(ctx, draft("AA00000001", "2024-01-01"))
	require.NoError(t, err)

	rec := draft("BB00000001", "2024-02-01")
	rec.ID = "restored"
	got, err := s.Save(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "restored", got.ID)
	assert.Equal(t, c.t.UnixMilli(), got.CreatedAt)
	assert.Equal(t, "restored", s.List()[0].ID)
}

func TestSaveRefusesMissingFields(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemoryKV())
	_, err := s.Save(context.Background(), draft("", "2024-01-01"))
	assert.ErrorIs(t, err, invoice.ErrMissingRequiredField)
	assert.Zero(t, s.Len())
}

func TestSaveRederivesTotals(t *testing.T) {
	s, _ := newTestStore(t, storage.NewMemoryKV())
	rec := draft("AB12345678", "2024-01-15", models.InvoiceItem{Quantity: 1, UnitPrice: 100})
	rec.Total = 1
	got, err := s.Save(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, 105.0, got.Total)
}

func TestCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, storage.NewMemoryKV())

	rec := draft("AB12345678", "2024-01-15")
	rec.ID = "ignored"
	created, err := s.Create(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "id-1", created.ID)

	created.Notes = "paid"
	updated, err := s.Update(ctx, created.ID, created)
	require.NoError(t, err)
	assert.Equal(t, "paid", updated.Notes)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = s.Update(ctx, "nope", created)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenameTouchesOnlyBuyerName(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, storage.NewMemoryKV())

	saved, err := s.Save(ctx, draft("AB12345678", "2024-01-15",
		models.InvoiceItem{Description: "tea", Quantity: 3, UnitPrice: 33.33}))
	require.NoError(t, err)

	renamed, err := s.Rename(ctx, saved.ID, "Acme Ltd")
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", renamed.BuyerName)

	saved.BuyerName = "Acme Ltd"
	assert.Equal(t, saved, renamed)

	_, err = s.Rename(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, storage.NewMemoryKV())
	saved, err := s.Save(ctx, draft("AB12345678", "2024-01-15"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "missing"))
	assert.Equal(t, 1, s.Len())
	require.NoError(t, s.Delete(ctx, saved.ID))
	assert.Equal(t, 0, s.Len())
}

func TestReplaceAllOverwrites(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, storage.NewMemoryKV())
	for i := 0; i < 10; i++ {
		_, err := s.Save(ctx, draft(fmt.Sprintf("AA%08d", i), "2024-01-01"))
		require.NoError(t, err)
	}

	imported := []models.InvoiceRecord{
		{ID: "x", InvoiceNumber: "XX00000001", Date: "2023-05-01", Total: 7},
		{ID: "y", InvoiceNumber: "XX00000002"},
		{ID: "z"},
	}
	require.NoError(t, s.ReplaceAll(ctx, imported))
	assert.Equal(t, imported, s.List())
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s, _ := newTestStore(t, kv)
	_, err := s.Save(ctx, draft("AB12345678", "2024-01-15", models.InvoiceItem{Description: "茶葉蛋", Quantity: 2, UnitPrice: 12}))
	require.NoError(t, err)

	reopened, _ := newTestStore(t, kv)
	assert.Equal(t, s.List(), reopened.List())
}

func TestLoadToleratesCorruptContent(t *testing.T) {
	ctx := context.Background()
	for _, content := range []string{`{not json`, `{"id":"a"}`, `null`, ``} {
		kv := storage.NewMemoryKV()
		require.NoError(t, kv.Set(ctx, DataKey, []byte(content)))
		s, _ := newTestStore(t, kv)
		assert.Equal(t, []models.InvoiceRecord{}, s.List(), content)
	}
}

func TestFailedFlushRollsBack(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{MemoryKV: storage.NewMemoryKV()}
	s, _ := newTestStore(t, kv)
	saved, err := s.Save(ctx, draft("AB12345678", "2024-01-15"))
	require.NoError(t, err)

	kv.fail = true
	_, err = s.Save(ctx, draft("CD12345678", "2024-01-16"))
	assert.ErrorIs(t, err, errDiskFull)
	_, err = s.Rename(ctx, saved.ID, "new")
	assert.ErrorIs(t, err, errDiskFull)
	assert.ErrorIs(t, s.Delete(ctx, saved.ID), errDiskFull)
	assert.ErrorIs(t, s.ReplaceAll(ctx, nil), errDiskFull)

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, saved, list[0])

	kv.fail = false
	reopened, _ := newTestStore(t, kv)
	assert.Equal(t, list, reopened.List())
}

func TestListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, storage.NewMemoryKV())
	_, err := s.Save(ctx, draft("AB12345678", "2024-01-15", models.InvoiceItem{Description: "a", Quantity: 1}))
	require.NoError(t, err)

	list := s.List()
	list[0].Items[0].Description = "changed"
	assert.Equal(t, "a", s.List()[0].Items[0].Description)
}

func TestConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s, _ := newTestStore(t, kv)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Save(ctx, draft(fmt.Sprintf("AB%08d", i), "2024-01-15",
				models.InvoiceItem{Description: "item", Quantity: 1, UnitPrice: float64(i)}))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, n, s.Len())

	data, ok, err := kv.Get(ctx, DataKey)
	require.NoError(t, err)
	require.True(t, ok)
	var persisted []models.InvoiceRecord
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Len(t, persisted, n)

	ids := map[string]bool{}
	for _, r := range persisted {
		ids[r.ID] = true
	}
	assert.Len(t, ids, n)
}
