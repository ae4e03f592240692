// Package ocr extracts the printed text of an invoice image using Google Cloud
// Vision document text detection.
//
// Credentials, in order:
//   - GOOGLE_CREDENTIALS: inline service account JSON
//   - GOOGLE_APPLICATION_CREDENTIALS: path to a service account JSON file
//   - application default credentials
//
// Limits: images up to 20MB, one image per request. Traditional Chinese and
// English language hints are sent so handwritten 統一發票 are read correctly.
package ocr

import (
	"context"
	"time"
)

// OCRService extracts text from invoice images.
type OCRService interface {
	// ExtractText returns the text of the image in reading order.
	ExtractText(ctx context.Context, image []byte) (*OCRResult, error)
}

// OCRResult contains the text of one image with metadata.
type OCRResult struct {
	// Text is the detected text in reading order.
	Text string `json:"text"`

	// Confidence is the average page confidence (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	// LanguageCodes contains the detected languages, sorted.
	LanguageCodes []string `json:"language_codes,omitempty"`

	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}
