package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"invoicesnap/pkg/models"
)

// PartialItem is a recognized line item. Nil fields were not recognized.
type PartialItem struct {
	Description *string  `json:"description,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unitPrice,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
}

// PartialRecord is what a recognizer returns. Every field is optional and
// none is trusted; the Reconciler merges it over a draft.
type PartialRecord struct {
	InvoiceNumber *string             `json:"invoiceNumber,omitempty"`
	Date          *string             `json:"date,omitempty"`
	BuyerName     *string             `json:"buyerName,omitempty"`
	BuyerTaxID    *string             `json:"buyerTaxId,omitempty"`
	Type          *models.InvoiceType `json:"type,omitempty"`
	Items         []PartialItem       `json:"items,omitempty"`
	HasItems      bool                `json:"-"`
	Subtotal      *float64            `json:"subtotal,omitempty"`
	Tax           *float64            `json:"tax,omitempty"`
	Total         *float64            `json:"total,omitempty"`
}

// ParsePartial parses a recognizer's JSON answer. It accepts fenced code
// blocks and surrounding prose, ignores fields of the wrong type, reads
// numbers written as strings ("NT$1,200") and accepts English or Chinese type
// names. It fails only when no JSON object can be found at all.
func ParsePartial(text string) (*PartialRecord, error) {
	raw, err := decodeObject(text)
	if err != nil {
		return nil, err
	}
	return partialFromMap(raw), nil
}

func decodeObject(text string) (map[string]interface{}, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrEmptyResponse)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("parse recognition JSON: %w", err)
	}
	return raw, nil
}

func partialFromMap(raw map[string]interface{}) *PartialRecord {
	p := &PartialRecord{
		InvoiceNumber: getString(raw, "invoiceNumber", "invoice_number"),
		Date:          getString(raw, "date", "invoiceDate", "invoice_date"),
		BuyerName:     getString(raw, "buyerName", "buyer_name"),
		BuyerTaxID:    getString(raw, "buyerTaxId", "buyer_tax_id"),
		Subtotal:      getNumber(raw, "subtotal"),
		Tax:           getNumber(raw, "tax"),
		Total:         getNumber(raw, "total"),
	}

	if s := getString(raw, "type"); s != nil {
		if t, ok := models.ParseInvoiceType(*s); ok {
			p.Type = &t
		}
	}

	if list, ok := raw["items"].([]interface{}); ok {
		p.HasItems = true
		for _, v := range list {
			m, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			p.Items = append(p.Items, PartialItem{
				Description: getString(m, "description", "name"),
				Quantity:    getNumber(m, "quantity", "qty"),
				UnitPrice:   getNumber(m, "unitPrice", "unit_price", "price"),
				Amount:      getNumber(m, "amount"),
			})
		}
	}

	return p
}

// getString returns the first non-empty string under keys.
func getString(m map[string]interface{}, keys ...string) *string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return &s
			}
		case float64:
			s := strconv.FormatFloat(v, 'f', -1, 64)
			return &s
		}
	}
	return nil
}

// getNumber returns the first number under keys, parsing numeric strings.
func getNumber(m map[string]interface{}, keys ...string) *float64 {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			return &v
		case string:
			if f, err := parseAmount(v); err == nil {
				return &f
			}
		}
	}
	return nil
}

// parseAmount parses amounts as printed on Taiwanese invoices: optional
// currency marks and comma thousands separators.
func parseAmount(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	for _, mark := range []string{"NT$", "NTD", "TWD", "$", "元", " ", ","} {
		cleaned = strings.ReplaceAll(cleaned, mark, "")
	}
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("unable to parse amount: %s (cleaned: %s)", s, cleaned)
	}
	return f, nil
}
