package models

import "strings"

// InvoiceType is the Taiwanese Uniform Invoice form. Values are persisted as
// the labels printed on the invoice so existing backups stay readable.
type InvoiceType string

const (
	Duplicate  InvoiceType = "二聯式" // 2-part, consumer invoice
	Triplicate InvoiceType = "三聯式" // 3-part, carries the buyer tax ID
	Unknown    InvoiceType = "未知"
)

// ParseInvoiceType maps English names, short aliases and the printed labels to
// an InvoiceType. The second return value is false for anything else.
func ParseInvoiceType(s string) (InvoiceType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "duplicate", "2", "2-part", "二聯式", "二聯":
		return Duplicate, true
	case "triplicate", "3", "3-part", "三聯式", "三聯":
		return Triplicate, true
	case "unknown", "未知":
		return Unknown, true
	}
	return "", false
}

// Name returns the English name of the invoice type.
func (t InvoiceType) Name() string {
	switch t {
	case Duplicate:
		return "Duplicate"
	case Triplicate:
		return "Triplicate"
	case Unknown:
		return "Unknown"
	}
	return string(t)
}

// InvoiceItem is a single line on an invoice.
type InvoiceItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Amount      float64 `json:"amount"` // round(Quantity * UnitPrice), see invoice.ItemAmount
}

// InvoiceRecord is a captured invoice. A record without ID is a draft.
type InvoiceRecord struct {
	// Identity
	ID            string      `json:"id"`
	InvoiceNumber string      `json:"invoiceNumber"` // typically 2 letters + 8 digits
	Date          string      `json:"date"`          // YYYY-MM-DD
	Type          InvoiceType `json:"type"`

	// Buyer (抬頭 / 統一編號)
	BuyerName  string `json:"buyerName"`
	BuyerTaxID string `json:"buyerTaxId"`

	Items []InvoiceItem `json:"items"`

	// Derived from Items, never set directly
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`

	Notes     string `json:"notes"`
	ImageURL  string `json:"imageUrl,omitempty"` // data URL of the captured image
	CreatedAt int64  `json:"createdAt"`          // epoch milliseconds
}

// IsDraft reports whether the record has not been committed yet.
func (r InvoiceRecord) IsDraft() bool {
	return r.ID == ""
}

// Clone returns a deep copy of the record.
func (r InvoiceRecord) Clone() InvoiceRecord {
	c := r
	if r.Items != nil {
		c.Items = make([]InvoiceItem, len(r.Items))
		copy(c.Items, r.Items)
	}
	return c
}
