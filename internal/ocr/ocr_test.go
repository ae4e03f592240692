package ocr

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextFromResponse(t *testing.T) {
	resp := &visionpb.AnnotateImageResponse{
		FullTextAnnotation: &visionpb.TextAnnotation{
			Text: "統一發票\nAB-12345678\n總計 263",
			Pages: []*visionpb.Page{
				{
					Confidence: 0.9,
					Property: &visionpb.TextAnnotation_TextProperty{
						DetectedLanguages: []*visionpb.TextAnnotation_DetectedLanguage{
							{LanguageCode: "zh-Hant"}, {LanguageCode: "en"}, {LanguageCode: ""},
						},
					},
				},
				{Confidence: 0.7},
			},
		},
	}

	result, err := textFromResponse(resp)
	require.NoError(t, err)
	assert.Contains(t, result.Text, "AB-12345678")
	assert.InDelta(t, 0.8, result.Confidence, 1e-6)
	assert.Equal(t, []string{"en", "zh-Hant"}, result.LanguageCodes)
}

func TestTextFromResponseEmpty(t *testing.T) {
	_, err := textFromResponse(&visionpb.AnnotateImageResponse{})
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = textFromResponse(&visionpb.AnnotateImageResponse{
		FullTextAnnotation: &visionpb.TextAnnotation{Text: "  \n"},
	})
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestExtractTextRejectsLargeImages(t *testing.T) {
	g := &GoogleVisionOCRService{}
	_, err := g.ExtractText(context.Background(), make([]byte, MaxImageBytes+1))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	var ocrErr *OCRError
	require.True(t, errors.As(err, &ocrErr))
	assert.Equal(t, "ExtractText", ocrErr.Op)
}
