package products_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/products"
	"github.com/vladislavdragonenkov/storefront/internal/storage/images"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	gifBytes = []byte("GIF89a\x01\x00\x01\x00")
)

func ptr(s string) *string { return &s }

func newService(t *testing.T) (*products.Service, string) {
	t.Helper()
	root := t.TempDir()
	store, err := images.NewLocalStore(root)
	require.NoError(t, err)
	return products.NewService(memory.NewProductRepository(memory.NewStore()), store, nil), root
}

func TestService_CreateRequiresImage(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), products.Input{Name: ptr("Croissant"), Price: ptr("5.00")})
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Contains(t, err.Error(), "The image field is required.")

	_, err = svc.Create(context.Background(), products.Input{
		Name:  ptr("Croissant"),
		Price: ptr("5.00"),
		Image: &products.Upload{Filename: "note.txt", Data: []byte("plain text")},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Contains(t, err.Error(), "must be a file of type")

	_, err = svc.Create(context.Background(), products.Input{
		Name:  ptr("Croissant"),
		Price: ptr("-1"),
		Image: &products.Upload{Filename: "a.png", Data: pngBytes},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_CreateAndReplaceImage(t *testing.T) {
	ctx := context.Background()
	svc, root := newService(t)

	created, err := svc.Create(ctx, products.Input{
		Name:  ptr("Croissant"),
		Price: ptr("5"),
		Image: &products.Upload{Filename: "a.png", Data: pngBytes},
	})
	require.NoError(t, err)
	require.Equal(t, "5.00", created.Price.StringFixed(2))
	require.Regexp(t, `^images/[0-9a-f-]+\.png$`, created.Image)
	require.FileExists(t, filepath.Join(root, created.Image))

	updated, err := svc.Update(ctx, created.ID, products.Input{
		Image: &products.Upload{Filename: "b.gif", Data: gifBytes},
	})
	require.NoError(t, err)
	require.Equal(t, "Croissant", updated.Name)
	require.Regexp(t, `\.gif$`, updated.Image)
	require.FileExists(t, filepath.Join(root, updated.Image))

	_, err = os.Stat(filepath.Join(root, created.Image))
	require.True(t, os.IsNotExist(err), "previous image must be removed")
}

func TestService_ResolveIgnoresDeletion(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	created, err := svc.Create(ctx, products.Input{
		Name:  ptr("Eclair"),
		Price: ptr("7.50"),
		Image: &products.Upload{Filename: "e.png", Data: pngBytes},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	require.EqualError(t, err, "Product not found.")

	resolved, err := svc.Resolve(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Eclair", resolved.Name)

	_, err = svc.Resolve(ctx, 999)
	require.True(t, domain.IsNotFound(err))
}
