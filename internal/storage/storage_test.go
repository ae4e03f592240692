package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "invoicesnap_data", []byte(`[]`)))
	require.NoError(t, kv.Set(ctx, "invoicesnap_data", []byte(`[{"id":"a"}]`)))

	v, ok, err := kv.Get(ctx, "invoicesnap_data")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"id":"a"}]`, string(v))

	require.NoError(t, kv.Delete(ctx, "invoicesnap_data"))
	require.NoError(t, kv.Delete(ctx, "invoicesnap_data"))
	_, ok, err = kv.Get(ctx, "invoicesnap_data")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}

func TestSQLiteKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "invoicesnap.db")
	kv, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	exerciseKV(t, kv)
	require.NoError(t, kv.Close())

	_, _, err = kv.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSQLiteKVPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "invoicesnap.db")

	kv, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "gemini_api_key", []byte("secret")))
	require.NoError(t, kv.Close())

	kv, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer kv.Close()

	v, ok, err := kv.Get(ctx, "gemini_api_key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "secret", string(v))
}
