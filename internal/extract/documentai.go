package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"invoicesnap/internal/config"
	"invoicesnap/internal/logger"
	"invoicesnap/pkg/models"
)

// DocumentAIConfig locates the invoice parser processor.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string // "us" or "eu"
	ProcessorID string
}

// DocumentAIRecognizer maps Document AI invoice parser entities to a partial record.
type DocumentAIRecognizer struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIRecognizer creates a processor client for cfg. opts carry the
// credential.
func NewDocumentAIRecognizer(ctx context.Context, cfg DocumentAIConfig, opts ...option.ClientOption) (*DocumentAIRecognizer, error) {
	const op = "NewDocumentAIRecognizer"

	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, WrapRecognitionError(op, config.ProviderDocumentAI, config.ErrNotConfigured,
			"GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID are required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	if cfg.Location != "us" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, WrapRecognitionError(op, config.ProviderDocumentAI, err,
			fmt.Sprintf("failed to create Document AI client for location: %s", cfg.Location))
	}

	return &DocumentAIRecognizer{
		client: client,
		config: cfg,
		log:    logger.WithComponent("document-ai"),
	}, nil
}

func (d *DocumentAIRecognizer) Name() string { return config.ProviderDocumentAI }

func (d *DocumentAIRecognizer) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		d.config.ProjectID, d.config.Location, d.config.ProcessorID)
}

// Recognize implements Recognizer.
func (d *DocumentAIRecognizer) Recognize(ctx context.Context, img Image) (*PartialRecord, error) {
	const op = "Recognize"

	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: d.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  img.Data,
				MimeType: img.MIME,
			},
		},
	})
	if err != nil {
		return nil, WrapRecognitionError(op, config.ProviderDocumentAI, classifyGRPCError(err), "")
	}
	if resp.GetDocument() == nil {
		return nil, WrapRecognitionError(op, config.ProviderDocumentAI, ErrEmptyResponse, "no document in response")
	}

	partial := d.partialFromDocument(resp.GetDocument())
	return partial, nil
}

func (d *DocumentAIRecognizer) partialFromDocument(doc *documentaipb.Document) *PartialRecord {
	p := &PartialRecord{}

	for _, entity := range doc.GetEntities() {
		value := strings.TrimSpace(entity.GetMentionText())

		d.log.Debug().
			Str("entity_type", entity.GetType()).
			Str("value", value).
			Float32("confidence", entity.GetConfidence()).
			Msg("Processing Document AI entity")

		switch entity.GetType() {
		case "invoice_id":
			p.InvoiceNumber = nonEmpty(normalizeInvoiceNumber(value))
		case "invoice_date":
			p.Date = entityDate(entity)
		case "receiver_name":
			p.BuyerName = nonEmpty(value)
		case "receiver_tax_id":
			p.BuyerTaxID = nonEmpty(value)
		case "net_amount":
			p.Subtotal = entityMoney(entity)
		case "total_tax_amount":
			p.Tax = entityMoney(entity)
		case "total_amount":
			p.Total = entityMoney(entity)
		case "line_item":
			p.HasItems = true
			p.Items = append(p.Items, lineItem(entity))
		}
	}

	if p.InvoiceNumber == nil {
		if number := findInvoiceNumber(doc.GetText()); number != "" {
			p.InvoiceNumber = &number
			d.log.Info().Str("fallback_number", number).Msg("Invoice number found in document text")
		}
	}

	// A filled buyer tax id is what distinguishes the 3-part form.
	t := models.Duplicate
	if p.BuyerTaxID != nil {
		t = models.Triplicate
	}
	p.Type = &t

	return p
}

func lineItem(entity *documentaipb.Document_Entity) PartialItem {
	var item PartialItem
	for _, prop := range entity.GetProperties() {
		value := strings.TrimSpace(prop.GetMentionText())
		switch prop.GetType() {
		case "line_item/description":
			item.Description = nonEmpty(value)
		case "line_item/quantity":
			if f, err := parseAmount(value); err == nil {
				item.Quantity = &f
			}
		case "line_item/unit_price":
			item.UnitPrice = entityMoney(prop)
		case "line_item/amount":
			item.Amount = entityMoney(prop)
		}
	}
	return item
}

func entityDate(entity *documentaipb.Document_Entity) *string {
	if dv := entity.GetNormalizedValue().GetDateValue(); dv != nil && dv.GetYear() > 0 {
		s := time.Date(int(dv.GetYear()), time.Month(dv.GetMonth()), int(dv.GetDay()), 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		return &s
	}
	return ParseInvoiceDate(entity.GetMentionText())
}

func entityMoney(entity *documentaipb.Document_Entity) *float64 {
	if mv := entity.GetNormalizedValue().GetMoneyValue(); mv != nil {
		f := float64(mv.GetUnits()) + float64(mv.GetNanos())/1e9
		return &f
	}
	if f, err := parseAmount(entity.GetMentionText()); err == nil {
		return &f
	}
	return nil
}

var (
	invoiceNumberPattern = regexp.MustCompile(`\b([A-Z]{2})-?(\d{8})\b`)
	rocDatePattern       = regexp.MustCompile(`(\d{2,4})\s*[年/.\-]\s*(\d{1,2})\s*[月/.\-]\s*(\d{1,2})`)
)

// findInvoiceNumber returns the first "AB12345678" or "AB-12345678" in text,
// without the dash.
func findInvoiceNumber(text string) string {
	if m := invoiceNumberPattern.FindStringSubmatch(text); m != nil {
		return m[1] + m[2]
	}
	return ""
}

func normalizeInvoiceNumber(s string) string {
	if n := findInvoiceNumber(strings.ToUpper(s)); n != "" {
		return n
	}
	return s
}

// ParseInvoiceDate reads a printed date, converting ROC years (e.g. 113) to AD.
func ParseInvoiceDate(s string) *string {
	m := rocDatePattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if year < 1000 {
		year += 1911
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	out := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	return &out
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func classifyGRPCError(err error) error {
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return err
}

// Close closes the underlying Document AI client.
func (d *DocumentAIRecognizer) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
