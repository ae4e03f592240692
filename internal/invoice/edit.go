package invoice

import (
	"fmt"
	"time"

	"invoicesnap/pkg/models"
)

// DateLayout is the calendar date format used by records.
const DateLayout = "2006-01-02"

// NewDraft returns an empty manual-entry draft dated today (UTC).
func NewDraft(now time.Time) models.InvoiceRecord {
	return models.InvoiceRecord{
		Date:  now.UTC().Format(DateLayout),
		Type:  models.Triplicate,
		Items: []models.InvoiceItem{},
	}
}

// NewItem returns the line item added by default: quantity 1, unit price 0.
func NewItem(description string) models.InvoiceItem {
	return models.InvoiceItem{Description: description, Quantity: 1}
}

// ItemPatch carries the item fields to change; nil fields are left alone.
type ItemPatch struct {
	Description *string
	Quantity    *float64
	UnitPrice   *float64
}

// AddItem appends item with its amount recomputed and re-derives the totals.
func AddItem(rec *models.InvoiceRecord, item models.InvoiceItem) {
	item.Amount = ItemAmount(item.Quantity, item.UnitPrice)
	rec.Items = append(rec.Items, item)
	Recompute(rec)
}

// UpdateItem applies patch to the item at index. The amount is recomputed only
// when quantity or unit price is touched.
func UpdateItem(rec *models.InvoiceRecord, index int, patch ItemPatch) error {
	if index < 0 || index >= len(rec.Items) {
		return fmt.Errorf("update item %d of %d: %w", index, len(rec.Items), ErrItemIndex)
	}

	item := &rec.Items[index]
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Quantity != nil || patch.UnitPrice != nil {
		if patch.Quantity != nil {
			item.Quantity = *patch.Quantity
		}
		if patch.UnitPrice != nil {
			item.UnitPrice = *patch.UnitPrice
		}
		item.Amount = ItemAmount(item.Quantity, item.UnitPrice)
	}

	Recompute(rec)
	return nil
}

// RemoveItem deletes the item at index and re-derives the totals.
func RemoveItem(rec *models.InvoiceRecord, index int) error {
	if index < 0 || index >= len(rec.Items) {
		return fmt.Errorf("remove item %d of %d: %w", index, len(rec.Items), ErrItemIndex)
	}
	rec.Items = append(rec.Items[:index:index], rec.Items[index+1:]...)
	Recompute(rec)
	return nil
}
