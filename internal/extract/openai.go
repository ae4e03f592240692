package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"invoicesnap/internal/config"
	"invoicesnap/internal/logger"
	"invoicesnap/internal/ocr"
)

// OpenAIConfig configures the OCR + chat recognizer.
type OpenAIConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAIRecognizer reads the image text with OCR and lets a chat model
// structure it.
type OpenAIRecognizer struct {
	ocr    ocr.OCRService
	client *openai.Client
	config OpenAIConfig
	log    zerolog.Logger
}

// NewOpenAIRecognizer creates a recognizer from an OCR service and an API key.
func NewOpenAIRecognizer(ocrService ocr.OCRService, apiKey string, cfg OpenAIConfig) (*OpenAIRecognizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, WrapRecognitionError("NewOpenAIRecognizer", config.ProviderOpenAI, config.ErrNotConfigured, "empty API key")
	}
	return NewOpenAIRecognizerWithClient(ocrService, openai.NewClient(apiKey), cfg), nil
}

// NewOpenAIRecognizerWithClient creates a recognizer with an explicit client.
func NewOpenAIRecognizerWithClient(ocrService ocr.OCRService, client *openai.Client, cfg OpenAIConfig) *OpenAIRecognizer {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1500
	}
	return &OpenAIRecognizer{
		ocr:    ocrService,
		client: client,
		config: cfg,
		log:    logger.WithComponent("openai"),
	}
}

func (o *OpenAIRecognizer) Name() string { return config.ProviderOpenAI }

// Close releases the OCR client when it holds one.
func (o *OpenAIRecognizer) Close() error {
	if c, ok := o.ocr.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Recognize implements Recognizer.
func (o *OpenAIRecognizer) Recognize(ctx context.Context, img Image) (*PartialRecord, error) {
	const op = "Recognize"

	text, err := o.ocr.ExtractText(ctx, img.Data)
	if err != nil {
		return nil, WrapRecognitionError(op, config.ProviderOpenAI, err, "OCR failed")
	}

	o.log.Debug().
		Int("ocr_characters", len(text.Text)).
		Str("model", o.config.Model).
		Float32("temperature", o.config.Temperature).
		Msg("Sending OCR text to chat model")

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.config.Model,
		Temperature: o.config.Temperature,
		MaxTokens:   o.config.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: Prompt + "\n\n" + jsonShape},
			{Role: openai.ChatMessageRoleUser, Content: buildOCRPrompt(text.Text)},
		},
	})
	if err != nil {
		return nil, WrapRecognitionError(op, config.ProviderOpenAI, classifyOpenAIError(err), "")
	}
	if len(resp.Choices) == 0 {
		return nil, WrapRecognitionError(op, config.ProviderOpenAI, ErrEmptyResponse, "no choices")
	}

	content := resp.Choices[0].Message.Content
	o.log.Debug().Int("response_length", len(content)).Msg("Received chat response")

	partial, err := ParsePartial(content)
	if err != nil {
		return nil, WrapRecognitionError(op, config.ProviderOpenAI, err, "unparseable response")
	}
	return partial, nil
}

func buildOCRPrompt(text string) string {
	var b strings.Builder
	b.WriteString("The invoice image was read with OCR. The text is below; line breaks follow the printed layout.\n")
	b.WriteString("Fields that cannot be found in the text must be left out.\n\n")
	b.WriteString("=== OCR TEXT ===\n")
	b.WriteString(text)
	b.WriteString("\n=== END ===\n")
	return b.String()
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && isAuthStatus(apiErr.HTTPStatusCode) {
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && isAuthStatus(reqErr.HTTPStatusCode) {
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, reqErr.HTTPStatus)
	}
	return err
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
