package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicesnap/internal/config"
	"invoicesnap/internal/extract"
	"invoicesnap/internal/logger"
	"invoicesnap/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [image]",
	Short: "Extract the printed text of an invoice image with Google Cloud Vision",
	Long: `Run Google Cloud Vision document text detection on an invoice image and print
the text. This is the first stage of the openai recognizer and helps to see
what the model is given.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string`,
	Example: `  invoicesnap ocr receipt.jpg
  invoicesnap ocr receipt.jpg --metadata
  invoicesnap ocr receipt.jpg --json -o result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput represents the JSON output structure when --json flag is used
type OCROutput struct {
	Text               string    `json:"text"`
	Confidence         float32   `json:"confidence,omitempty"`
	LanguageCodes      []string  `json:"language_codes,omitempty"`
	ProcessedAt        time.Time `json:"processed_at,omitempty"`
	ProcessingDuration string    `json:"processing_duration,omitempty"`
	FileName           string    `json:"file_name"`
	FileSize           int       `json:"file_size"`
	MIMEType           string    `json:"mime_type"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().BoolP("metadata", "m", false, "Include metadata in output")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
	ocrCmd.Flags().Int("timeout", 60, "Processing timeout in seconds")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	imagePath := args[0]

	img, err := extract.LoadImage(imagePath)
	if err != nil {
		return handleImageError(err, imagePath, log)
	}

	log.Info().
		Str("file", imagePath).
		Str("mime", img.MIME).
		Int("timeout", timeoutSecs).
		Msg("Starting OCR processing")

	ctx, cancel := createContextWithTimeout(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	ocrService, err := createOCRService(ctx, log)
	if err != nil {
		return err
	}
	defer ocrService.Close()

	result, err := ocrService.ExtractText(ctx, img.Data)
	if err != nil {
		return handleOCRError(err, log)
	}

	log.Info().
		Float32("confidence", result.Confidence).
		Dur("duration", result.ProcessingDuration).
		Int("text_length", len(result.Text)).
		Msg("OCR processing completed successfully")

	var data []byte
	switch {
	case jsonOutput:
		var b strings.Builder
		err = writeJSON(&b, OCROutput{
			Text:               result.Text,
			Confidence:         result.Confidence,
			LanguageCodes:      result.LanguageCodes,
			ProcessedAt:        result.ProcessedAt,
			ProcessingDuration: result.ProcessingDuration.String(),
			FileName:           filepath.Base(imagePath),
			FileSize:           len(img.Data),
			MIMEType:           img.MIME,
		})
		if err != nil {
			return err
		}
		data = []byte(b.String())
	case includeMetadata:
		var b strings.Builder
		fmt.Fprintf(&b, "=== OCR Results for %s ===\n", filepath.Base(imagePath))
		fmt.Fprintf(&b, "File size: %s (%s)\n", humanize.Bytes(uint64(len(img.Data))), img.MIME)
		if result.Confidence > 0 {
			fmt.Fprintf(&b, "Confidence: %.1f%%\n", result.Confidence*100)
		}
		if len(result.LanguageCodes) > 0 {
			fmt.Fprintf(&b, "Languages: %s\n", strings.Join(result.LanguageCodes, ", "))
		}
		fmt.Fprintf(&b, "Processing time: %v\n", result.ProcessingDuration)
		b.WriteString("\n=== Extracted Text ===\n\n")
		b.WriteString(result.Text)
		b.WriteString("\n")
		data = []byte(b.String())
	default:
		data = []byte(result.Text + "\n")
	}

	if outputPath == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		log.Error().Err(err).Str("output_file", outputPath).Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output_file", outputPath).Int("bytes", len(data)).Msg("OCR results written to file")
	return nil
}

// createOCRService creates the Vision client with the Google credentials from
// the environment.
func createOCRService(ctx context.Context, log zerolog.Logger) (*ocr.GoogleVisionOCRService, error) {
	opts := config.GoogleClientOptions()
	if opts == nil {
		log.Debug().Msg("No explicit Google credentials, using application default credentials")
	}

	ocrService, err := ocr.NewGoogleVisionOCRService(ctx, opts...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create OCR service")
		if errors.Is(err, ocr.ErrMissingCredentials) {
			return nil, fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
				"1. GOOGLE_APPLICATION_CREDENTIALS with the path to a service account JSON file\n" +
				"2. GOOGLE_CREDENTIALS with the inline service account JSON\n" +
				"3. Application default credentials: gcloud auth application-default login")
		}
		return nil, fmt.Errorf("failed to create OCR service: %w", err)
	}
	return ocrService, nil
}

// handleOCRError provides user-friendly error messages for OCR failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR processing timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR processing was canceled")
	case errors.Is(err, ocr.ErrImageTooLarge):
		return fmt.Errorf("image is too large (maximum 20MB)")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the image")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Check GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("permission denied. Please ensure your service account has the 'Cloud Vision API User' role")
	case strings.Contains(errStr, "quota"):
		return fmt.Errorf("Google Cloud Vision API quota exceeded. Check your project quotas in the Google Cloud Console")
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}
