package lineitems_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/lineitems"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

// catalog resolves products through the repository, ignoring deletion.
type catalog struct {
	repo domain.ProductRepository
}

func (c catalog) Resolve(ctx context.Context, id int64) (domain.Product, error) {
	return c.repo.GetWithDeleted(ctx, id)
}

// failingItems fails the first Insert, after the removals and updates of a replace ran.
type failingItems struct {
	domain.LineItemRepository
	failInsert bool
}

func (f *failingItems) Insert(ctx context.Context, item domain.LineItem) error {
	if f.failInsert {
		return errors.New("disk full")
	}
	return f.LineItemRepository.Insert(ctx, item)
}

type ManagerSuite struct {
	suite.Suite

	ctx      context.Context
	store    *memory.Store
	products domain.ProductRepository
	items    *failingItems
	manager  *lineitems.Manager
	orderID  int64
	a, b, c  int64
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.products = memory.NewProductRepository(s.store)
	s.items = &failingItems{LineItemRepository: memory.NewLineItemRepository(s.store)}
	s.manager = lineitems.NewManager(s.items, catalog{repo: s.products}, s.store, nil)

	s.a = s.createProduct("A", "5.00")
	s.b = s.createProduct("B", "7.50")
	s.c = s.createProduct("C", "3.20")

	order, err := memory.NewOrderRepository(s.store).Create(s.ctx, domain.Order{CustomerID: 1})
	s.Require().NoError(err)
	s.orderID = order.ID
}

func (s *ManagerSuite) createProduct(name, price string) int64 {
	p, err := s.products.Create(s.ctx, domain.Product{Name: name, Price: decimal.RequireFromString(price)})
	s.Require().NoError(err)
	return p.ID
}

func (s *ManagerSuite) quantities() map[int64]int {
	list, err := s.manager.ListFor(s.ctx, s.orderID)
	s.Require().NoError(err)
	result := make(map[int64]int, len(list))
	for _, item := range list {
		result[item.ProductID] = item.Quantity
	}
	return result
}

func (s *ManagerSuite) TestAttachKeepsInsertionOrder() {
	err := s.manager.Attach(s.ctx, s.orderID, []domain.ItemRequest{
		{ProductID: s.b, Quantity: 1},
		{ProductID: s.a, Quantity: 2},
	})
	s.Require().NoError(err)

	list, err := s.manager.ListFor(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(s.b, list[0].ProductID)
	s.Equal("B", list[0].Product.Name)
	s.Equal(s.a, list[1].ProductID)
	s.Equal(2, list[1].Quantity)
}

func (s *ManagerSuite) TestAttachDuplicateWritesNothing() {
	err := s.manager.Attach(s.ctx, s.orderID, []domain.ItemRequest{
		{ProductID: s.a, Quantity: 1},
		{ProductID: s.a, Quantity: 2},
	})
	var verr *domain.ValidationError
	s.Require().True(errors.As(err, &verr), "expected validation error, got %v", err)
	s.Contains(verr.Fields, "products.1.id")
	s.Empty(s.quantities())
}

func (s *ManagerSuite) TestAttachUnknownProductWritesNothing() {
	err := s.manager.Attach(s.ctx, s.orderID, []domain.ItemRequest{
		{ProductID: s.a, Quantity: 1},
		{ProductID: 999, Quantity: 1},
	})
	s.Require().Error(err)
	s.EqualError(err, "Product not found.")
	s.Empty(s.quantities())
}

func (s *ManagerSuite) TestAttachAcceptsDeletedProduct() {
	s.Require().NoError(s.products.SoftDelete(s.ctx, s.c))
	s.Require().NoError(s.manager.Attach(s.ctx, s.orderID, []domain.ItemRequest{{ProductID: s.c, Quantity: 1}}))
	s.Equal(map[int64]int{s.c: 1}, s.quantities())
}

func (s *ManagerSuite) TestReplaceComputesSymmetricDifference() {
	s.Require().NoError(s.manager.Attach(s.ctx, s.orderID, []domain.ItemRequest{
		{ProductID: s.a, Quantity: 2},
		{ProductID: s.b, Quantity: 1},
	}))

	s.Require().NoError(s.manager.Replace(s.ctx, s.orderID, []domain.ItemRequest{
		{ProductID: s.a, Quantity: 3},
		{ProductID: s.c, Quantity: 1},
	}))

	s.Equal(map[int64]int{s.a: 3, s.c: 1}, s.quantities())
}

func (s *ManagerSuite) TestReplaceIsIdempotent() {
	target := []domain.ItemRequest{{ProductID: s.a, Quantity: 3}, {ProductID: s.c, Quantity: 1}}
	s.Require().NoError(s.manager.Attach(s.ctx, s.orderID, []domain.ItemRequest{{ProductID: s.b, Quantity: 1}}))

	s.Require().NoError(s.manager.Replace(s.ctx, s.orderID, target))
	first := s.quantities()
	s.Require().NoError(s.manager.Replace(s.ctx, s.orderID, target))

	s.Equal(first, s.quantities())
}

func (s *ManagerSuite) TestReplaceRewritesUpdatedAt() {
	s.Require().NoError(s.manager.Attach(s.ctx, s.orderID, []domain.ItemRequest{{ProductID: s.a, Quantity: 2}}))
	before, err := s.manager.ListFor(s.ctx, s.orderID)
	s.Require().NoError(err)

	time.Sleep(2 * time.Millisecond)
	s.Require().NoError(s.manager.Replace(s.ctx, s.orderID, []domain.ItemRequest{{ProductID: s.a, Quantity: 2}}))

	after, err := s.manager.ListFor(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Equal(before[0].CreatedAt, after[0].CreatedAt)
	s.True(after[0].UpdatedAt.After(before[0].UpdatedAt), "unchanged quantity is still written")
}

func (s *ManagerSuite) TestReplaceIsAtomic() {
	s.Require().NoError(s.manager.Attach(s.ctx, s.orderID, []domain.ItemRequest{
		{ProductID: s.a, Quantity: 2},
		{ProductID: s.b, Quantity: 1},
	}))

	s.items.failInsert = true
	err := s.manager.Replace(s.ctx, s.orderID, []domain.ItemRequest{
		{ProductID: s.a, Quantity: 3},
		{ProductID: s.c, Quantity: 1},
	})
	s.Require().Error(err)
	s.items.failInsert = false

	s.Equal(map[int64]int{s.a: 2, s.b: 1}, s.quantities(), "a failed replace must leave the previous set intact")
}

func (s *ManagerSuite) TestReplaceValidation() {
	err := s.manager.Replace(s.ctx, s.orderID, nil)
	s.Require().ErrorIs(err, domain.ErrValidation)

	err = s.manager.Replace(s.ctx, s.orderID, []domain.ItemRequest{{ProductID: s.a, Quantity: 0}})
	s.Require().ErrorIs(err, domain.ErrValidation)

	err = s.manager.Replace(s.ctx, s.orderID, []domain.ItemRequest{{ProductID: 404, Quantity: 1}})
	s.Require().True(domain.IsNotFound(err))
}

func TestListForReflectsCurrentPrice(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	productRepo := memory.NewProductRepository(store)
	manager := lineitems.NewManager(memory.NewLineItemRepository(store), catalog{repo: productRepo}, store, nil)

	product, err := productRepo.Create(ctx, domain.Product{Name: "A", Price: decimal.RequireFromString("5.00")})
	require.NoError(t, err)
	order, err := memory.NewOrderRepository(store).Create(ctx, domain.Order{CustomerID: 1})
	require.NoError(t, err)
	require.NoError(t, manager.Attach(ctx, order.ID, []domain.ItemRequest{{ProductID: product.ID, Quantity: 2}}))

	product.Price = decimal.RequireFromString("6.00")
	_, err = productRepo.Update(ctx, product)
	require.NoError(t, err)

	list, err := manager.ListFor(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, "6.00", list[0].Product.Price.StringFixed(2))
	require.Equal(t, "12.00", list[0].Total().StringFixed(2))
}
