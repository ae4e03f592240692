package store

import (
	"strings"

	"invoicesnap/pkg/models"
)

// Query narrows a record list. Zero values match everything.
type Query struct {
	Search string
	Type   string // "all", "" or anything models.ParseInvoiceType accepts
}

// Filter returns the records matching q, keeping their order.
//
// Buyer name and invoice number match case-insensitively; item descriptions,
// notes and buyer tax id match as plain substrings.
func Filter(records []models.InvoiceRecord, q Query) []models.InvoiceRecord {
	wantType, typed := models.InvoiceType(""), false
	if t := strings.TrimSpace(q.Type); t != "" && !strings.EqualFold(t, "all") {
		wantType, typed = models.ParseInvoiceType(t)
		if !typed {
			wantType, typed = models.InvoiceType(t), true
		}
	}

	out := make([]models.InvoiceRecord, 0, len(records))
	for _, r := range records {
		if typed && r.Type != wantType {
			continue
		}
		if !matches(r, q.Search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matches(r models.InvoiceRecord, term string) bool {
	if term == "" {
		return true
	}
	lower := strings.ToLower(term)
	if strings.Contains(strings.ToLower(r.BuyerName), lower) ||
		strings.Contains(strings.ToLower(r.InvoiceNumber), lower) {
		return true
	}
	for _, item := range r.Items {
		if strings.Contains(item.Description, term) {
			return true
		}
	}
	return strings.Contains(r.Notes, term) || strings.Contains(r.BuyerTaxID, term)
}
