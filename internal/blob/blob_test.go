package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalWriteRead(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	path, err := store.Write(context.Background(), ".PDF", []byte("plan"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, ".pdf"))
	require.True(t, store.Exists(path))

	data, err := store.Read(path)
	require.NoError(t, err)
	require.Equal(t, "plan", string(data))
}

func TestLocalNamesAreUnique(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	a, err := store.Write(context.Background(), ".txt", []byte("a"))
	require.NoError(t, err)
	b, err := store.Write(context.Background(), ".txt", []byte("b"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestLocalRejectsForeignPaths(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	outside := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	require.False(t, store.Exists(outside))
	_, err = store.Read(outside)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Read(filepath.Join(store.Dir(), "missing.pdf"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalWriteHonoursCancelledContext(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Write(ctx, ".txt", []byte("x"))
	require.ErrorIs(t, err, context.Canceled)
}
