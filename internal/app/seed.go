package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/customers"
	"github.com/vladislavdragonenkov/storefront/internal/service/orders"
	"github.com/vladislavdragonenkov/storefront/internal/service/products"
)

// placeholderImage — минимальный PNG для демонстрационных товаров.
var placeholderImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

type seedClient struct {
	name, email, phone, birth, address, neighborhood, postal string
}

type seedProduct struct {
	name, price string
}

var (
	seedClients = []seedClient{
		{"Maria Souza", "maria@example.com", "555-0101", "1988-04-12", "Rua das Flores 10", "Centro", "01001000"},
		{"Joao Lima", "joao@example.com", "555-0102", "1992-09-30", "Av. Paulista 1000", "Bela Vista", "01310100"},
		{"Ana Costa", "ana@example.com", "555-0103", "1979-01-05", "Rua Augusta 250", "Consolacao", "01305000"},
	}
	seedProducts = []seedProduct{
		{"Croissant", "5.00"},
		{"Eclair", "7.50"},
		{"Macaron", "3.20"},
		{"Pain au chocolat", "6.10"},
	}
)

// Seed заполняет пустое хранилище клиентами, товарами и заказами.
// Если клиенты уже есть, ничего не делает.
func Seed(ctx context.Context, services Services, logger *log.Entry) error {
	existing, err := services.Customers.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.WithField("clients", len(existing)).Info("store is not empty, skipping seed")
		return nil
	}

	clientIDs := make([]int64, 0, len(seedClients))
	for _, c := range seedClients {
		created, err := services.Customers.Create(ctx, customers.Input{
			Name:         &c.name,
			Email:        &c.email,
			Phone:        &c.phone,
			DateOfBirth:  &c.birth,
			Address:      &c.address,
			Neighborhood: &c.neighborhood,
			PostalCode:   &c.postal,
		})
		if err != nil {
			return fmt.Errorf("seed client %s: %w", c.email, err)
		}
		clientIDs = append(clientIDs, created.ID)
	}

	productIDs := make([]int64, 0, len(seedProducts))
	for _, p := range seedProducts {
		created, err := services.Products.Create(ctx, products.Input{
			Name:  &p.name,
			Price: &p.price,
			Image: &products.Upload{Filename: "placeholder.png", Data: placeholderImage},
		})
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.name, err)
		}
		productIDs = append(productIDs, created.ID)
	}

	for i, clientID := range clientIDs {
		items := []domain.ItemRequest{
			{ProductID: productIDs[i%len(productIDs)], Quantity: i + 1},
			{ProductID: productIDs[(i+1)%len(productIDs)], Quantity: 1},
		}
		if _, err := services.Orders.CreateOrder(ctx, orders.Input{ClientID: &clientID, Products: items}); err != nil {
			return fmt.Errorf("seed order for client %d: %w", clientID, err)
		}
	}

	logger.WithFields(log.Fields{
		"clients":  len(clientIDs),
		"products": len(productIDs),
		"orders":   len(clientIDs),
	}).Info("demo data seeded")
	return nil
}
