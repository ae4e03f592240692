package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicesnap/internal/storage"
)

func testResolver(build string, env map[string]string) (*CredentialResolver, *storage.MemoryKV) {
	kv := storage.NewMemoryKV()
	r := NewCredentialResolver(kv)
	r.build[ProviderGemini] = build
	r.getenv = func(k string) string { return env[k] }
	return r, kv
}

func TestResolvePriority(t *testing.T) {
	ctx := context.Background()

	r, _ := testResolver("", map[string]string{"GEMINI_API_KEY": "from-env"})
	c, err := r.Resolve(ctx, ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, Credential{Provider: ProviderGemini, Value: "from-env", Source: SourceEnv}, c)

	require.NoError(t, r.Store(ctx, ProviderGemini, "  from-user \n"))
	c, err = r.Resolve(ctx, ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, "from-user", c.Value)
	assert.Equal(t, SourceStored, c.Source)

	r.build[ProviderGemini] = "from-build"
	c, err = r.Resolve(ctx, ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, SourceBuild, c.Source)

	r.build[ProviderGemini] = ""
	require.NoError(t, r.Clear(ctx, ProviderGemini))
	c, err = r.Resolve(ctx, ProviderGemini)
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, c.Source)
}

func TestResolveNotConfigured(t *testing.T) {
	r, kv := testResolver("", nil)
	_, err := r.Resolve(context.Background(), ProviderGemini)
	assert.ErrorIs(t, err, ErrNotConfigured)

	require.NoError(t, kv.Set(context.Background(), StorageKey(ProviderGemini), []byte("   ")))
	_, err = r.Resolve(context.Background(), ProviderGemini)
	assert.ErrorIs(t, err, ErrNotConfigured)

	assert.Error(t, r.Store(context.Background(), ProviderGemini, " "))
}

func TestResolveDocumentAIFile(t *testing.T) {
	r, _ := testResolver("", map[string]string{"GOOGLE_APPLICATION_CREDENTIALS": "/etc/sa.json"})
	c, err := r.Resolve(context.Background(), ProviderDocumentAI)
	require.NoError(t, err)
	assert.Equal(t, SourceFile, c.Source)
	assert.Len(t, c.ClientOptions(), 1)
}

func TestMasked(t *testing.T) {
	assert.Equal(t, "********wxyz", Credential{Value: "abcdefwxyz"}.Masked())
	assert.Equal(t, "***", Credential{Value: "abc"}.Masked())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RECOGNIZER", "")
	t.Setenv("INVOICESNAP_DB", "/tmp/x.db")
	t.Setenv("RECOGNITION_TIMEOUT", "30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.Recognizer)
	assert.Equal(t, "/tmp/x.db", cfg.DatabasePath)
	assert.Equal(t, 30*time.Second, cfg.RecognitionTimeout)
	assert.Equal(t, "Invoices", cfg.GoogleSheetWorksheet)
}

func TestLoadKeepsUnknownRecognizer(t *testing.T) {
	t.Setenv("RECOGNIZER", "Tesseract")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tesseract", cfg.Recognizer)
}
