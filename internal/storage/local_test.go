package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turuturu/turuturu/internal/config"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (BlobStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalStore(Params{
		Config: config.Config{UploadDir: dir, AppURL: "http://localhost:8080"},
		Log:    zap.NewNop(),
	})
	require.NoError(t, err)
	return store, dir
}

func TestPutWritesBlobAndReturnsURL(t *testing.T) {
	store, dir := newTestStore(t)

	url, err := store.Put(context.Background(), "order_o1_1700000000000.mp3", "audio/mpeg", strings.NewReader("audio bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/order_o1_1700000000000.mp3", url)

	data, err := os.ReadFile(filepath.Join(dir, "order_o1_1700000000000.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "audio bytes", string(data))
}

func TestPutRejectsTraversalKeys(t *testing.T) {
	store, dir := newTestStore(t)

	for _, key := range []string{"", "../escape.mp3", "a/b.mp3", `a\b.mp3`, "..", "x..y.mp3"} {
		_, err := store.Put(context.Background(), key, "audio/mpeg", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteRemovesBlob(t *testing.T) {
	store, dir := newTestStore(t)

	_, err := store.Put(context.Background(), "song.mp3", "audio/mpeg", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), "song.mp3"))
	_, err = os.Stat(filepath.Join(dir, "song.mp3"))
	assert.True(t, os.IsNotExist(err))

	// A second delete of the same key is not an error.
	assert.NoError(t, store.Delete(context.Background(), "song.mp3"))

	assert.ErrorIs(t, store.Delete(context.Background(), "../song.mp3"), ErrInvalidKey)
}
