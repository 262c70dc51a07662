package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestLineItemRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	orders := memory.NewOrderRepository(store)
	items := memory.NewLineItemRepository(store)

	croissant, err := products.Create(ctx, domain.Product{Name: "Croissant", Price: decimal.RequireFromString("5.00")})
	require.NoError(t, err)
	eclair, err := products.Create(ctx, domain.Product{Name: "Eclair", Price: decimal.RequireFromString("7.50")})
	require.NoError(t, err)
	order, err := orders.Create(ctx, domain.Order{CustomerID: 1})
	require.NoError(t, err)

	require.NoError(t, items.Insert(ctx, domain.LineItem{OrderID: order.ID, ProductID: croissant.ID, Quantity: 2}))
	require.NoError(t, items.Insert(ctx, domain.LineItem{OrderID: order.ID, ProductID: eclair.ID, Quantity: 1}))
	require.ErrorIs(t, items.Insert(ctx, domain.LineItem{OrderID: order.ID, ProductID: eclair.ID, Quantity: 4}), domain.ErrConflict)
	require.True(t, domain.IsNotFound(items.Insert(ctx, domain.LineItem{OrderID: order.ID, ProductID: 99, Quantity: 1})))

	list, err := items.ListByOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, croissant.ID, list[0].ProductID)
	require.False(t, list[0].CreatedAt.IsZero())

	later := time.Now().UTC().Add(time.Minute)
	require.NoError(t, items.UpdateQuantity(ctx, order.ID, croissant.ID, 3, later))
	require.NoError(t, items.Delete(ctx, order.ID, eclair.ID))
	require.True(t, domain.IsNotFound(items.Delete(ctx, order.ID, eclair.ID)))

	// Удалённый товар остаётся видимым в исторических позициях.
	require.NoError(t, products.SoftDelete(ctx, croissant.ID))

	resolved, err := items.ListResolved(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	require.Equal(t, 3, resolved[0].Quantity)
	require.Equal(t, later, resolved[0].UpdatedAt)
	require.Equal(t, "Croissant", resolved[0].Product.Name)
	require.NotNil(t, resolved[0].Product.DeletedAt)
}
