package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicesnap/pkg/models"
)

func TestParsePartialToleratesMess(t *testing.T) {
	text := "Here is the data:\n```json\n" + `{
		"invoiceNumber": "  CD87654321 ",
		"date": 20240115,
		"buyerName": "",
		"buyerTaxId": 12345678,
		"type": "Triplicate",
		"items": [
			{"description": "便當", "quantity": "2", "unitPrice": "NT$1,200", "amount": true},
			"garbage",
			{"name": "茶", "qty": 1, "price": 30}
		],
		"subtotal": "2,430",
		"tax": null,
		"total": {"value": 1}
	}` + "\n```"

	p, err := ParsePartial(text)
	require.NoError(t, err)

	assert.Equal(t, "CD87654321", *p.InvoiceNumber)
	assert.Equal(t, "20240115", *p.Date)
	assert.Nil(t, p.BuyerName)
	assert.Equal(t, "12345678", *p.BuyerTaxID)
	assert.Equal(t, models.Triplicate, *p.Type)
	assert.True(t, p.HasItems)
	require.Len(t, p.Items, 2)
	assert.Equal(t, 2.0, *p.Items[0].Quantity)
	assert.Equal(t, 1200.0, *p.Items[0].UnitPrice)
	assert.Nil(t, p.Items[0].Amount)
	assert.Equal(t, "茶", *p.Items[1].Description)
	assert.Equal(t, 30.0, *p.Items[1].UnitPrice)
	assert.Equal(t, 2430.0, *p.Subtotal)
	assert.Nil(t, p.Tax)
	assert.Nil(t, p.Total)
}

func TestParsePartialUnknownType(t *testing.T) {
	p, err := ParsePartial(`{"type":"receipt","items":"none"}`)
	require.NoError(t, err)
	assert.Nil(t, p.Type)
	assert.False(t, p.HasItems)
}

func TestParsePartialRejectsNonJSON(t *testing.T) {
	_, err := ParsePartial("I could not read this invoice.")
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = ParsePartial(`{"invoiceNumber": }`)
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	for in, want := range map[string]float64{
		"1,200":    1200,
		"NT$ 350":  350,
		"45元":      45,
		"-12.5":    -12.5,
		"TWD1,000": 1000,
	} {
		got, err := parseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "abc", "NaN", "Inf"} {
		_, err := parseAmount(in)
		assert.Error(t, err, in)
	}
}
