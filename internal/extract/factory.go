package extract

import (
	"context"
	"fmt"
	"io"

	"invoicesnap/internal/config"
	"invoicesnap/internal/ocr"
)

// Options selects and configures a recognizer.
type Options struct {
	Provider   string
	Credential config.Credential

	GeminiModel string
	OpenAI      OpenAIConfig
	DocumentAI  DocumentAIConfig
}

// OptionsFromConfig fills Options from the loaded configuration and a resolved credential.
func OptionsFromConfig(cfg *config.Config, cred config.Credential) Options {
	return Options{
		Provider:    cfg.Recognizer,
		Credential:  cred,
		GeminiModel: cfg.GeminiModel,
		OpenAI: OpenAIConfig{
			Model:       cfg.OpenAIModel,
			Temperature: cfg.OpenAITemperature,
		},
		DocumentAI: DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		},
	}
}

// ClosableRecognizer is a Recognizer holding client connections.
type ClosableRecognizer interface {
	Recognizer
	io.Closer
}

// New constructs the recognizer for opts.Provider. Recognizers hold the
// credential they were built with; build a new one after it changes.
func New(ctx context.Context, opts Options) (ClosableRecognizer, error) {
	switch opts.Provider {
	case config.ProviderGemini:
		r, err := NewGeminiRecognizer(ctx, opts.Credential.Value, opts.GeminiModel)
		if err != nil {
			return nil, err
		}
		return r, nil

	case config.ProviderOpenAI:
		vision, err := ocr.NewGoogleVisionOCRService(ctx, config.GoogleClientOptions()...)
		if err != nil {
			return nil, WrapRecognitionError("New", opts.Provider, err, "OCR is required by the openai recognizer")
		}
		r, err := NewOpenAIRecognizer(vision, opts.Credential.Value, opts.OpenAI)
		if err != nil {
			vision.Close()
			return nil, err
		}
		return r, nil

	case config.ProviderDocumentAI:
		r, err := NewDocumentAIRecognizer(ctx, opts.DocumentAI, opts.Credential.ClientOptions()...)
		if err != nil {
			return nil, err
		}
		return r, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownRecognizer, opts.Provider)
}
