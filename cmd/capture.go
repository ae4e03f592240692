package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicesnap/internal/config"
	"invoicesnap/internal/extract"
	"invoicesnap/internal/logger"
	"invoicesnap/pkg/models"
)

var captureCmd = &cobra.Command{
	Use:   "capture [image]",
	Short: "Recognize an invoice photo into an editable draft",
	Long: `Send an invoice image to the configured recognizer and produce a draft record.

The draft is never saved automatically unless --save is given. Review it,
correct it with 'invoicesnap item' or a text editor, then commit it with
'invoicesnap save'. When recognition fails the draft is still written, blank
but with the image attached, so it can be filled in by hand.

Recognizers (RECOGNIZER):
  gemini      - Gemini multimodal model (GEMINI_API_KEY)
  openai      - Cloud Vision OCR + OpenAI chat model (OPENAI_API_KEY, Google credentials)
  documentai  - Document AI invoice parser (Google credentials, GOOGLE_CLOUD_PROJECT,
                DOCUMENT_AI_PROCESSOR_ID)`,
	Example: `  # Recognize and print the draft
  invoicesnap capture receipt.jpg

  # Write the draft to a file for editing
  invoicesnap capture receipt.jpg -o draft.json

  # Recognize and save right away
  invoicesnap capture receipt.jpg --save`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringP("output", "o", "", "Draft output file (default: stdout)")
	captureCmd.Flags().Bool("save", false, "Save the draft immediately if it is complete")
	captureCmd.Flags().String("recognizer", "", "Recognizer to use (overrides RECOGNIZER)")
	captureCmd.Flags().Int("timeout", 0, "Recognition timeout in seconds (default: RECOGNITION_TIMEOUT)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("capture")

	outputPath, _ := cmd.Flags().GetString("output")
	save, _ := cmd.Flags().GetBool("save")
	recognizer, _ := cmd.Flags().GetString("recognizer")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	imagePath := args[0]

	img, err := extract.LoadImage(imagePath)
	if err != nil {
		return handleImageError(err, imagePath, log)
	}

	a, err := openApp(cmd.Context(), cmd, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if recognizer != "" {
		a.cfg.Recognizer = strings.ToLower(recognizer)
	}
	timeout := a.cfg.RecognitionTimeout
	if timeoutSecs > 0 {
		timeout = time.Duration(timeoutSecs) * time.Second
	}

	log.Info().
		Str("file", imagePath).
		Str("mime", img.MIME).
		Int("bytes", len(img.Data)).
		Str("recognizer", a.cfg.Recognizer).
		Dur("timeout", timeout).
		Msg("Starting capture")

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	rec, err := createRecognizer(ctx, a, log)
	if err != nil {
		return err
	}
	defer rec.Close()

	draft, recErr := extract.NewReconciler(rec, nil).Reconcile(ctx, img)
	if recErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\nA blank draft with the image attached was produced instead.\n",
			handleRecognitionError(recErr, log))
	}

	if save && recErr == nil {
		saved, err := a.store.Save(ctx, draft)
		if err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved invoice %s (%s)\n", saved.InvoiceNumber, saved.ID)
			draft = saved
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "Not saved: %v\n", handleStoreError(err, "", log))
		}
	}

	return outputDraft(cmd, draft, outputPath)
}

// newRecognizer builds the recognizer once a credential is resolved.
var newRecognizer = extract.New

// createRecognizer resolves the credential for the configured recognizer and
// builds it. A missing credential stops the capture before any request is made.
func createRecognizer(ctx context.Context, a *app, log zerolog.Logger) (extract.ClosableRecognizer, error) {
	provider := a.cfg.Recognizer

	var cred config.Credential
	var err error
	switch provider {
	case config.ProviderGemini, config.ProviderOpenAI:
		cred, err = a.resolver.Resolve(ctx, provider)
	case config.ProviderDocumentAI:
		// Document AI can also run on application default credentials.
		cred, err = a.resolver.Resolve(ctx, provider)
		if errors.Is(err, config.ErrNotConfigured) {
			err = nil
		}
	default:
		return nil, fmt.Errorf("%w: %q (use gemini, openai or documentai)", extract.ErrUnknownRecognizer, provider)
	}
	if err != nil {
		log.Error().Err(err).Str("recognizer", provider).Msg("No recognition credential")
		if errors.Is(err, config.ErrNotConfigured) {
			return nil, notConfiguredError(provider)
		}
		return nil, err
	}

	log.Debug().
		Str("recognizer", provider).
		Str("source", string(cred.Source)).
		Str("credential", cred.Masked()).
		Msg("Resolved recognition credential")

	r, err := newRecognizer(ctx, extract.OptionsFromConfig(a.cfg, cred))
	if err != nil {
		if extract.IsCredentialError(err) {
			return nil, notConfiguredError(provider)
		}
		log.Error().Err(err).Msg("Failed to create recognizer")
		return nil, fmt.Errorf("failed to create %s recognizer: %w", provider, err)
	}
	return r, nil
}

func notConfiguredError(provider string) error {
	if provider == config.ProviderDocumentAI {
		return fmt.Errorf("Document AI is not configured. Set GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID,\n" +
			"and GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS for the service account")
	}
	return fmt.Errorf("no %s API key configured. Store one with:\n\n"+
		"   invoicesnap config set-key %s\n\n"+
		"or set %s in the environment or .env file", provider, provider, config.EnvKeys(provider)[0])
}

// handleRecognitionError provides user-friendly messages for recognition failures
func handleRecognitionError(err error, log zerolog.Logger) error {
	log.Warn().Err(err).Msg("Recognition failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("recognition timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("recognition was canceled")
	case extract.IsCredentialError(err):
		return fmt.Errorf("the recognition service rejected the credential. Check it with 'invoicesnap config status'")
	case errors.Is(err, extract.ErrEmptyResponse):
		return fmt.Errorf("the recognizer returned nothing usable for this image")
	default:
		return fmt.Errorf("recognition failed: %w", err)
	}
}

func handleImageError(err error, path string, log zerolog.Logger) error {
	log.Error().Err(err).Str("file", path).Msg("Cannot use image")

	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("image not found: %s", path)
	case errors.Is(err, extract.ErrImageTooLarge):
		return fmt.Errorf("image is too large (maximum 20MB): %s", path)
	case errors.Is(err, extract.ErrUnsupportedImage):
		return fmt.Errorf("not an image file: %s (%v)", path, err)
	default:
		return err
	}
}

func outputDraft(cmd *cobra.Command, draft models.InvoiceRecord, outputPath string) error {
	if outputPath == "" {
		return writeJSON(cmd.OutOrStdout(), draft)
	}
	if err := writeRecordFile(outputPath, draft); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Draft written to %s\n", outputPath)
	return nil
}
