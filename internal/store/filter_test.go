package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"invoicesnap/pkg/models"
)

func TestFilter(t *testing.T) {
	records := []models.InvoiceRecord{
		{ID: "1", InvoiceNumber: "AB12345678", BuyerName: "Acme Ltd", Type: models.Triplicate, BuyerTaxID: "12345678"},
		{ID: "2", InvoiceNumber: "CD87654321", Type: models.Duplicate, Notes: "Taxi to airport",
			Items: []models.InvoiceItem{{Description: "便當"}}},
		{ID: "3", InvoiceNumber: "EF00000000", Type: models.Unknown, BuyerName: "acme branch"},
	}

	ids := func(rs []models.InvoiceRecord) []string {
		out := []string{}
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"1", "2", "3"}, ids(Filter(records, Query{})))
	assert.Equal(t, []string{"1", "3"}, ids(Filter(records, Query{Search: "ACME"})))
	assert.Equal(t, []string{"2"}, ids(Filter(records, Query{Search: "cd876"})))
	assert.Equal(t, []string{"2"}, ids(Filter(records, Query{Search: "便當"})))
	assert.Equal(t, []string{"2"}, ids(Filter(records, Query{Search: "Taxi"})))
	assert.Empty(t, ids(Filter(records, Query{Search: "taxi"})))
	assert.Equal(t, []string{"1"}, ids(Filter(records, Query{Search: "345678"})))
	assert.Equal(t, []string{"1", "3"}, ids(Filter(records, Query{Search: "acme", Type: "all"})))
	assert.Equal(t, []string{"3"}, ids(Filter(records, Query{Search: "acme", Type: "unknown"})))
	assert.Equal(t, []string{"2"}, ids(Filter(records, Query{Type: "二聯式"})))
	assert.Empty(t, ids(Filter(records, Query{Type: "receipt"})))
}
