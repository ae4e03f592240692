package invoice

import (
	"strings"

	"invoicesnap/internal/logger"
	"invoicesnap/pkg/models"
)

// Validate refuses records that cannot be committed. Only the invoice number
// and the date are required; buyer tax id stays free text.
func Validate(rec models.InvoiceRecord) error {
	log := logger.WithComponent("invoice-validation")

	if strings.TrimSpace(rec.InvoiceNumber) == "" {
		log.Debug().Str("field", "invoiceNumber").Msg("Refusing save")
		return NewValidationError("invoiceNumber", rec.InvoiceNumber, "invoice number is required", ErrMissingRequiredField)
	}
	if strings.TrimSpace(rec.Date) == "" {
		log.Debug().Str("field", "date").Msg("Refusing save")
		return NewValidationError("date", rec.Date, "date is required", ErrMissingRequiredField)
	}
	return nil
}
