package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"

	"invoicesnap/internal/logger"
)

// ErrNotConfigured is returned when no credential for the recognition service
// can be found anywhere.
var ErrNotConfigured = errors.New("recognition credential not configured")

// Build-time credentials, injected with
//
//	go build -ldflags "-X invoicesnap/internal/config.BuildGeminiAPIKey=..."
var (
	BuildGeminiAPIKey         string
	BuildOpenAIAPIKey         string
	BuildGoogleCredentialJSON string
)

// Source tells where a credential came from.
type Source string

const (
	SourceBuild  Source = "build"
	SourceStored Source = "stored"
	SourceEnv    Source = "env"
	SourceFile   Source = "file"
)

// Credential is a resolved secret for one recognition provider. For
// documentai the value is a service account JSON or, with SourceFile, a path.
type Credential struct {
	Provider string
	Value    string
	Source   Source
}

// Masked returns the value with all but the last four characters hidden.
func (c Credential) Masked() string {
	if c.Source == SourceFile {
		return c.Value
	}
	if len(c.Value) <= 4 {
		return strings.Repeat("*", len(c.Value))
	}
	return strings.Repeat("*", 8) + c.Value[len(c.Value)-4:]
}

// ClientOptions returns Google client options carrying the credential.
func (c Credential) ClientOptions() []option.ClientOption {
	switch {
	case c.Value == "":
		return nil
	case c.Source == SourceFile:
		return []option.ClientOption{option.WithCredentialsFile(c.Value)}
	default:
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.Value))}
	}
}

// KeyStore is the durable storage user-supplied credentials live in.
type KeyStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// CredentialResolver finds the recognition credential. Priority: the
// build-time value, then the user-supplied value in the key store, then the
// environment.
type CredentialResolver struct {
	store  KeyStore
	getenv func(string) string
	build  map[string]string
}

func NewCredentialResolver(store KeyStore) *CredentialResolver {
	return &CredentialResolver{
		store:  store,
		getenv: os.Getenv,
		build: map[string]string{
			ProviderGemini:     BuildGeminiAPIKey,
			ProviderOpenAI:     BuildOpenAIAPIKey,
			ProviderDocumentAI: BuildGoogleCredentialJSON,
		},
	}
}

// StorageKey is the key store entry holding the user credential for provider.
func StorageKey(provider string) string {
	return provider + "_api_key"
}

// EnvKeys lists the environment variables consulted for provider, in order.
func EnvKeys(provider string) []string {
	switch provider {
	case ProviderGemini:
		return []string{"GEMINI_API_KEY", "API_KEY"}
	case ProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	case ProviderDocumentAI:
		return []string{"GOOGLE_CREDENTIALS"}
	}
	return nil
}

// Resolve returns the credential for provider or ErrNotConfigured.
func (r *CredentialResolver) Resolve(ctx context.Context, provider string) (Credential, error) {
	const op = "Resolve"
	log := logger.WithComponent("credentials")

	if v := strings.TrimSpace(r.build[provider]); v != "" {
		return Credential{Provider: provider, Value: v, Source: SourceBuild}, nil
	}

	if r.store != nil {
		v, ok, err := r.store.Get(ctx, StorageKey(provider))
		if err != nil {
			return Credential{}, fmt.Errorf("%s: read stored credential: %w", op, err)
		}
		if ok && strings.TrimSpace(string(v)) != "" {
			return Credential{Provider: provider, Value: strings.TrimSpace(string(v)), Source: SourceStored}, nil
		}
	}

	for _, key := range EnvKeys(provider) {
		if v := strings.TrimSpace(r.getenv(key)); v != "" {
			return Credential{Provider: provider, Value: v, Source: SourceEnv}, nil
		}
	}

	if provider == ProviderDocumentAI {
		if path := r.getenv("GOOGLE_APPLICATION_CREDENTIALS"); path != "" {
			return Credential{Provider: provider, Value: path, Source: SourceFile}, nil
		}
	}

	log.Debug().Str("provider", provider).Msg("No credential found")
	return Credential{}, fmt.Errorf("%s: %s: %w", op, provider, ErrNotConfigured)
}

// Store saves a user-supplied credential for provider.
func (r *CredentialResolver) Store(ctx context.Context, provider, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("store credential: empty value for %s", provider)
	}
	if r.store == nil {
		return fmt.Errorf("store credential: no key store")
	}
	if err := r.store.Set(ctx, StorageKey(provider), []byte(value)); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

// Clear removes the user-supplied credential for provider. Build-time and
// environment values are unaffected.
func (r *CredentialResolver) Clear(ctx context.Context, provider string) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.Delete(ctx, StorageKey(provider)); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// GoogleClientOptions returns the credential options for Google Cloud clients
// from GOOGLE_CREDENTIALS (inline JSON) or GOOGLE_APPLICATION_CREDENTIALS
// (file). With neither set the client falls back to default credentials.
func GoogleClientOptions() []option.ClientOption {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}
	}
	return nil
}
