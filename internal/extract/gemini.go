package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"invoicesnap/internal/config"
	"invoicesnap/internal/logger"
)

// GeminiRecognizer sends the image with the extraction prompt to a Gemini
// model and asks for JSON matching the record shape.
type GeminiRecognizer struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewGeminiRecognizer creates a recognizer bound to apiKey. A changed key
// needs a new recognizer.
func NewGeminiRecognizer(ctx context.Context, apiKey, model string) (*GeminiRecognizer, error) {
	const op = "NewGeminiRecognizer"

	if strings.TrimSpace(apiKey) == "" {
		return nil, WrapRecognitionError(op, config.ProviderGemini, config.ErrNotConfigured, "empty API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, WrapRecognitionError(op, config.ProviderGemini, err, "failed to create Gemini client")
	}

	return &GeminiRecognizer{
		client: client,
		model:  model,
		log:    logger.WithComponent("gemini"),
	}, nil
}

func (g *GeminiRecognizer) Name() string { return config.ProviderGemini }

// Close is a no-op; the Gemini client holds no connections of its own.
func (g *GeminiRecognizer) Close() error { return nil }

// Recognize implements Recognizer.
func (g *GeminiRecognizer) Recognize(ctx context.Context, img Image) (*PartialRecord, error) {
	const op = "Recognize"

	parts := []*genai.Part{
		genai.NewPartFromBytes(img.Data, img.MIME),
		genai.NewPartFromText(Prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	g.log.Debug().
		Str("model", g.model).
		Str("mime", img.MIME).
		Int("bytes", len(img.Data)).
		Msg("Sending image to Gemini")

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	})
	if err != nil {
		return nil, WrapRecognitionError(op, config.ProviderGemini, classifyGeminiError(err), "")
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, WrapRecognitionError(op, config.ProviderGemini, ErrEmptyResponse, "")
	}

	g.log.Debug().Int("response_length", len(text)).Msg("Received Gemini response")

	partial, err := ParsePartial(text)
	if err != nil {
		return nil, WrapRecognitionError(op, config.ProviderGemini, err, "unparseable response")
	}
	return partial, nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.Code == http.StatusUnauthorized,
		apiErr.Code == http.StatusForbidden,
		strings.Contains(apiErr.Message, "API_KEY_INVALID"),
		strings.Contains(apiErr.Message, "API key not valid"):
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Error())
	}
	return err
}
