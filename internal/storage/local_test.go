package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutFetchDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	size, err := store.Put(ctx, "uploads/file-1", strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)

	path, cleanup, err := store.Fetch(ctx, "uploads/file-1")
	require.NoError(t, err)
	defer cleanup()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))

	require.NoError(t, store.Delete(ctx, "uploads/file-1"))

	_, _, err = store.Fetch(ctx, "uploads/file-1")
	assert.Error(t, err)
}

func TestLocalStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(ctx, "k", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "k", strings.NewReader("second"))
	require.NoError(t, err)

	path, cleanup, err := store.Fetch(ctx, "k")
	require.NoError(t, err)
	defer cleanup()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(ctx, "../outside", strings.NewReader("x"))
	assert.Error(t, err)

	_, _, err = store.Fetch(ctx, "../../etc/passwd")
	assert.Error(t, err)
}

func TestLocalStore_DeleteMissingKeyIsNoop(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(ctx, "never-stored"))
}

func TestNewLocalStore_RequiresBaseDir(t *testing.T) {
	_, err := NewLocalStore("")
	assert.Error(t, err)
}
