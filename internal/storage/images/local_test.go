package images

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestLocalStore_PutAndDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	path, err := store.Put(ctx, "images/a.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "images/a.png", path)

	data, err := os.ReadFile(filepath.Join(root, "images", "a.png"))
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(ctx, path))
	_, err = os.Stat(filepath.Join(root, "images", "a.png"))
	require.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, store.Delete(ctx, path), "deleting a missing file is not an error")
}

func TestLocalStore_RejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../etc/passwd", "/abs.png", "images/../../x.png"} {
		_, err := store.Put(context.Background(), name, "image/png", strings.NewReader("x"))
		require.ErrorIs(t, err, domain.ErrImageStore, "name %q", name)
	}
}

func TestGCSStore_PublicURL(t *testing.T) {
	store := &GCSStore{bucket: "shop-images"}

	require.Equal(t, "https://storage.googleapis.com/shop-images/images/a.png", store.PublicURL("images/a.png"))
	require.Empty(t, store.PublicURL(""))
}
