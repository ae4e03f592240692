package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicesnap/internal/config"
	"invoicesnap/pkg/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeRecognizer struct {
	partial *PartialRecord
	err     error
	panics  bool
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Recognize(context.Context, Image) (*PartialRecord, error) {
	if f.panics {
		panic("boom")
	}
	return f.partial, f.err
}

func fixedNow() time.Time { return time.Date(2024, 7, 1, 3, 0, 0, 0, time.UTC) }

func testImage(t *testing.T) Image {
	t.Helper()
	img, err := NewImage(pngHeader)
	require.NoError(t, err)
	return img
}

func assertBlankDraft(t *testing.T, draft models.InvoiceRecord, img Image) {
	t.Helper()
	assert.Equal(t, img.DataURL(), draft.ImageURL)
	assert.Equal(t, "2024-07-01", draft.Date)
	assert.Equal(t, models.Triplicate, draft.Type)
	assert.Empty(t, draft.InvoiceNumber)
	assert.Empty(t, draft.Items)
	assert.Zero(t, draft.Total)
	assert.True(t, draft.IsDraft())
}

func TestReconcileFailureYieldsBlankDraft(t *testing.T) {
	img := testImage(t)
	cases := map[string]*fakeRecognizer{
		"network":   {err: errors.New("connection reset")},
		"malformed": {err: ErrEmptyResponse},
		"nil":       {},
		"panic":     {panics: true},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			draft, err := NewReconciler(rec, fixedNow).Reconcile(context.Background(), img)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRecognitionFailed)
			assert.False(t, IsCredentialError(err))
			assertBlankDraft(t, draft, img)
		})
	}
}

func TestReconcileCredentialFailure(t *testing.T) {
	img := testImage(t)
	rec := &fakeRecognizer{err: ErrInvalidCredentials}
	draft, err := NewReconciler(rec, fixedNow).Reconcile(context.Background(), img)
	assert.True(t, IsCredentialError(err))
	assertBlankDraft(t, draft, img)

	assert.True(t, IsCredentialError(WrapRecognitionError("New", "gemini", config.ErrNotConfigured, "")))
}

func TestReconcileOverlaysRecognizedFields(t *testing.T) {
	partial, err := ParsePartial(`{"invoiceNumber":"AB12345678","buyerName":"大同公司","type":"二聯式",
		"items":[{"description":"文具","quantity":2,"unitPrice":100,"amount":200},{"description":"紙","quantity":1,"unitPrice":50}],
		"total":9999}`)
	require.NoError(t, err)

	img := testImage(t)
	draft, err := NewReconciler(&fakeRecognizer{partial: partial}, fixedNow).Reconcile(context.Background(), img)
	require.NoError(t, err)

	assert.Equal(t, "AB12345678", draft.InvoiceNumber)
	assert.Equal(t, "2024-07-01", draft.Date, "absent date keeps the default")
	assert.Equal(t, "大同公司", draft.BuyerName)
	assert.Equal(t, models.Duplicate, draft.Type)
	require.Len(t, draft.Items, 2)
	assert.Equal(t, 50.0, draft.Items[1].Amount)
	assert.Equal(t, 250.0, draft.Subtotal)
	assert.Equal(t, 13.0, draft.Tax)
	assert.Equal(t, 263.0, draft.Total)
	assert.Equal(t, img.DataURL(), draft.ImageURL)
	assert.Empty(t, draft.ID)
}

func TestMergeKeepsRecognizedItemAmount(t *testing.T) {
	q, p, a := 3.0, 10.0, 29.0
	out := Merge(models.InvoiceRecord{Type: models.Triplicate}, &PartialRecord{
		HasItems: true,
		Items:    []PartialItem{{Quantity: &q, UnitPrice: &p, Amount: &a}, {}},
	})
	require.Len(t, out.Items, 2)
	assert.Equal(t, 29.0, out.Items[0].Amount)
	assert.Equal(t, 1.0, out.Items[1].Quantity)
	assert.Equal(t, 0.0, out.Items[1].Amount)
	assert.Equal(t, 29.0, out.Subtotal)
}

func TestMergeNil(t *testing.T) {
	d := models.InvoiceRecord{Date: "2024-01-01", Items: []models.InvoiceItem{}}
	assert.Equal(t, d, Merge(d, nil))
}
