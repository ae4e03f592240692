// Package extract turns a captured invoice image into an editable draft record
// using a hosted recognition service.
//
// Three recognizers are available:
//   - gemini: the image and a fixed prompt are sent to a Gemini model with a
//     JSON response schema
//   - openai: Cloud Vision extracts the printed text, a chat model structures it
//   - documentai: the Document AI invoice parser, with entities mapped to fields
//
// Recognizer output is never trusted. The Reconciler overlays whatever fields
// the recognizer produced on a fresh draft and always attaches the image, so a
// failed recognition still leaves the user with a draft to fill in by hand.
package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"invoicesnap/internal/invoice"
	"invoicesnap/internal/logger"
	"invoicesnap/pkg/models"
)

// Recognizer extracts invoice fields from an image.
type Recognizer interface {
	Recognize(ctx context.Context, img Image) (*PartialRecord, error)
	Name() string
}

// Reconciler builds drafts from recognizer output. It never touches the store.
type Reconciler struct {
	recognizer Recognizer
	now        func() time.Time
	log        zerolog.Logger
}

// NewReconciler returns a Reconciler using recognizer. The clock dates the
// draft; nil means time.Now.
func NewReconciler(recognizer Recognizer, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		recognizer: recognizer,
		now:        now,
		log:        logger.WithComponent("reconciler"),
	}
}

// Reconcile recognizes img and returns a draft. The draft is always usable:
// on failure it holds the manual-entry defaults plus the image, and the
// returned error (matching ErrRecognitionFailed) says why.
func (r *Reconciler) Reconcile(ctx context.Context, img Image) (draft models.InvoiceRecord, err error) {
	const op = "Reconcile"
	name := r.recognizer.Name()

	draft = invoice.NewDraft(r.now())
	draft.ImageURL = img.DataURL()

	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Str("recognizer", name).Interface("panic", p).Msg("Recognizer panicked")
			draft = invoice.NewDraft(r.now())
			draft.ImageURL = img.DataURL()
			err = &RecognitionError{Op: op, Provider: name, Err: fmt.Errorf("recognizer panic: %v", p)}
		}
	}()

	start := time.Now()
	partial, recErr := r.recognizer.Recognize(ctx, img)
	if recErr != nil {
		r.log.Warn().
			Err(recErr).
			Str("recognizer", name).
			Bool("credential_error", IsCredentialError(recErr)).
			Msg("Recognition failed, returning blank draft")
		return draft, WrapRecognitionError(op, name, recErr, "")
	}
	if partial == nil {
		return draft, &RecognitionError{Op: op, Provider: name, Err: ErrEmptyResponse}
	}

	draft = Merge(draft, partial)

	r.log.Info().
		Str("recognizer", name).
		Str("invoice_number", draft.InvoiceNumber).
		Int("items", len(draft.Items)).
		Float64("total", draft.Total).
		Dur("duration", time.Since(start)).
		Msg("Recognized invoice")

	return draft, nil
}

// Merge overlays the recognized fields of p on draft. Fields p lacks keep the
// draft's values. Missing item quantities default to 1 and unit prices to 0; a
// recognized item amount is kept, otherwise it is computed. Totals are always
// re-derived from the items.
func Merge(draft models.InvoiceRecord, p *PartialRecord) models.InvoiceRecord {
	out := draft.Clone()
	if p == nil {
		return out
	}

	setString(&out.InvoiceNumber, p.InvoiceNumber)
	setString(&out.Date, p.Date)
	setString(&out.BuyerName, p.BuyerName)
	setString(&out.BuyerTaxID, p.BuyerTaxID)
	if p.Type != nil {
		out.Type = *p.Type
	}

	if p.HasItems {
		out.Items = make([]models.InvoiceItem, 0, len(p.Items))
		for _, pi := range p.Items {
			item := invoice.NewItem("")
			setString(&item.Description, pi.Description)
			setNumber(&item.Quantity, pi.Quantity)
			setNumber(&item.UnitPrice, pi.UnitPrice)
			if pi.Amount != nil {
				item.Amount = *pi.Amount
			} else {
				item.Amount = invoice.ItemAmount(item.Quantity, item.UnitPrice)
			}
			out.Items = append(out.Items, item)
		}
	}

	invoice.Recompute(&out)

	if p.Total != nil && *p.Total != out.Total {
		log := logger.WithComponent("reconciler")
		log.Debug().
			Float64("recognized_total", *p.Total).
			Float64("derived_total", out.Total).
			Msg("Recognized total differs from item sum")
	}

	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setNumber(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
