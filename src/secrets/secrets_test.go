package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("openai", "sk-test-123"))

	got, err := store.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", got)
}

func TestGetUnsetReturnsEmpty(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	got, err := store.Get("google")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestValuesEncryptedOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("openai", "sk-very-secret"))

	data, err := os.ReadFile(filepath.Join(dir, "secrets.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-very-secret")
	assert.Contains(t, string(data), "ENC:")
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("google", "AIza-test"))

	reopened, err := Open(dir)
	require.NoError(t, err)
	got, err := reopened.Get("google")
	require.NoError(t, err)
	assert.Equal(t, "AIza-test", got)
}

func TestSetEmptyRemoves(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("openai", "sk-x"))
	require.NoError(t, store.Set("openai", ""))

	got, err := store.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	data, err := os.ReadFile(filepath.Join(dir, "secrets.json"))
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "openai"))
}

func TestTamperedValueFailsDecryption(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("openai", "sk-x"))

	store.mu.Lock()
	sealed := store.values["openai"]
	// Flip a character near the end of the ciphertext.
	tampered := sealed[:len(sealed)-2] + "A="
	store.values["openai"] = tampered
	store.mu.Unlock()

	_, err = store.Get("openai")
	assert.Error(t, err)
}

func TestKeyFilePermissions(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "secrets.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
