package invoice

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicesnap/pkg/models"
)

func TestComputeTotals(t *testing.T) {
	items := []models.InvoiceItem{
		{Quantity: 2, UnitPrice: 100, Amount: 200},
		{Quantity: 1, UnitPrice: 50, Amount: 50},
	}
	got := ComputeTotals(items)
	assert.Equal(t, Totals{Subtotal: 250, Tax: 13, Total: 263}, got)
}

func TestComputeTotalsEmpty(t *testing.T) {
	assert.Equal(t, Totals{}, ComputeTotals(nil))
	assert.Equal(t, Totals{}, ComputeTotals([]models.InvoiceItem{}))
}

func TestRecomputeIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		rec := models.InvoiceRecord{}
		for j := rng.Intn(6); j > 0; j-- {
			q := float64(rng.Intn(20) - 2)
			p := float64(rng.Intn(100000))/100 - 10
			rec.Items = append(rec.Items, models.InvoiceItem{Quantity: q, UnitPrice: p, Amount: ItemAmount(q, p)})
		}
		Recompute(&rec)
		once := rec.Clone()
		Recompute(&rec)
		require.Equal(t, once, rec)
	}
}

func TestItemAmountRounding(t *testing.T) {
	cases := []struct {
		q, p, want float64
	}{
		{2, 100, 200},
		{1, 0.5, 1},
		{3, 33.33, 100},
		{1.5, 3, 5},   // 4.5 rounds up
		{-1, 2.5, -2}, // half rounds toward +inf
		{-2, 3, -6},
		{math.NaN(), 10, 0},
		{2, math.Inf(1), 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ItemAmount(tc.q, tc.p), "%v * %v", tc.q, tc.p)
	}
}

func TestTaxRoundsHalfUp(t *testing.T) {
	// 10 * 0.05 = 0.5
	got := ComputeTotals([]models.InvoiceItem{{Amount: 10}})
	assert.Equal(t, 1.0, got.Tax)
	assert.Equal(t, 11.0, got.Total)
}

func TestItemEdits(t *testing.T) {
	rec := NewDraft(time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-09", rec.Date)
	assert.Equal(t, models.Triplicate, rec.Type)

	AddItem(&rec, NewItem("coffee"))
	assert.Equal(t, 1.0, rec.Items[0].Quantity)
	assert.Equal(t, 0.0, rec.Total)

	price := 120.0
	require.NoError(t, UpdateItem(&rec, 0, ItemPatch{UnitPrice: &price}))
	assert.Equal(t, 120.0, rec.Items[0].Amount)
	assert.Equal(t, Totals{120, 6, 126}, Totals{rec.Subtotal, rec.Tax, rec.Total})

	name := "latte"
	require.NoError(t, UpdateItem(&rec, 0, ItemPatch{Description: &name}))
	assert.Equal(t, 126.0, rec.Total)

	AddItem(&rec, models.InvoiceItem{Description: "cake", Quantity: 2, UnitPrice: 40, Amount: 999})
	assert.Equal(t, 80.0, rec.Items[1].Amount)
	assert.Equal(t, 200.0, rec.Subtotal)

	require.NoError(t, RemoveItem(&rec, 0))
	require.Len(t, rec.Items, 1)
	assert.Equal(t, "cake", rec.Items[0].Description)
	assert.Equal(t, 84.0, rec.Total)

	assert.True(t, errors.Is(RemoveItem(&rec, 3), ErrItemIndex))
	assert.True(t, errors.Is(UpdateItem(&rec, -1, ItemPatch{}), ErrItemIndex))
}

func TestDescriptionEditKeepsExtractedAmount(t *testing.T) {
	rec := models.InvoiceRecord{Items: []models.InvoiceItem{{Description: "x", Quantity: 3, UnitPrice: 10, Amount: 29}}}
	Recompute(&rec)
	d := "y"
	require.NoError(t, UpdateItem(&rec, 0, ItemPatch{Description: &d}))
	assert.Equal(t, 29.0, rec.Items[0].Amount)
	assert.Equal(t, 29.0, rec.Subtotal)
}

func TestValidate(t *testing.T) {
	rec := models.InvoiceRecord{InvoiceNumber: "AB12345678", Date: "2024-01-15"}
	require.NoError(t, Validate(rec))

	rec.InvoiceNumber = "  "
	err := Validate(rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "invoiceNumber", verr.Field)

	rec.InvoiceNumber = "AB12345678"
	rec.Date = ""
	require.ErrorAs(t, Validate(rec), &verr)
	assert.Equal(t, "date", verr.Field)
}
