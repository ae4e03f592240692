package ocr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"invoicesnap/internal/logger"
)

// MaxImageBytes is the largest image the Vision API accepts inline (20MB).
const MaxImageBytes = 20 * 1024 * 1024

// LanguageHints are sent with every request.
var LanguageHints = []string{"zh-Hant", "en"}

// GoogleVisionOCRService implements OCRService using Google Cloud Vision API.
type GoogleVisionOCRService struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewGoogleVisionOCRService creates a Vision client with opts, typically
// config.GoogleClientOptions().
func NewGoogleVisionOCRService(ctx context.Context, opts ...option.ClientOption) (*GoogleVisionOCRService, error) {
	const op = "NewGoogleVisionOCRService"

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, err.Error())
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}

	return &GoogleVisionOCRService{
		client: client,
		log:    logger.WithComponent("ocr"),
	}, nil
}

// ExtractText implements OCRService.
func (g *GoogleVisionOCRService) ExtractText(ctx context.Context, image []byte) (*OCRResult, error) {
	const op = "ExtractText"
	startTime := time.Now()

	if len(image) > MaxImageBytes {
		return nil, WrapOCRError(op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(image)))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{LanguageHints: LanguageHints},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	imgResp := resp.Responses[0]
	if imgResp.Error != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", imgResp.Error.Message))
	}

	result, err := textFromResponse(imgResp)
	if err != nil {
		return nil, WrapOCRError(op, err, "")
	}

	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	g.log.Debug().
		Int("characters", len(result.Text)).
		Float32("confidence", result.Confidence).
		Strs("languages", result.LanguageCodes).
		Dur("duration", result.ProcessingDuration).
		Msg("Extracted image text")

	return result, nil
}

// textFromResponse collects the full text, average page confidence and the
// languages Vision detected.
func textFromResponse(resp *visionpb.AnnotateImageResponse) (*OCRResult, error) {
	full := resp.GetFullTextAnnotation()
	if full == nil || strings.TrimSpace(full.GetText()) == "" {
		return nil, ErrEmptyDocument
	}

	var confidenceSum float32
	languageSet := make(map[string]bool)
	for _, page := range full.GetPages() {
		confidenceSum += page.GetConfidence()
		for _, lang := range page.GetProperty().GetDetectedLanguages() {
			if lang.GetLanguageCode() != "" {
				languageSet[lang.GetLanguageCode()] = true
			}
		}
	}

	var avgConfidence float32
	if n := len(full.GetPages()); n > 0 {
		avgConfidence = confidenceSum / float32(n)
	}

	languages := make([]string, 0, len(languageSet))
	for lang := range languageSet {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	return &OCRResult{
		Text:          full.GetText(),
		Confidence:    avgConfidence,
		LanguageCodes: languages,
	}, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionOCRService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
