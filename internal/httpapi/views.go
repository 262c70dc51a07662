package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type clientView struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	DateOfBirth  string     `json:"date_of_birth"`
	Address      string     `json:"address"`
	AddressLine2 *string    `json:"address_line2"`
	Neighborhood string     `json:"neighborhood"`
	PostalCode   string     `json:"postal_code"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at"`
}

type productView struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Price     string     `json:"price"`
	Image     string     `json:"image"`
	ImageURL  string     `json:"image_url"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at"`
}

type pivotView struct {
	OrderID   int64     `json:"order_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type orderProductView struct {
	productView
	Pivot pivotView `json:"pivot"`
}

type orderView struct {
	ID        int64              `json:"id"`
	ClientID  int64              `json:"client_id"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	DeletedAt *time.Time         `json:"deleted_at"`
	Client    clientView         `json:"client"`
	Products  []orderProductView `json:"products"`
	Total     string             `json:"total"`
}

type timelineView struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason"`
	Occurred time.Time `json:"occurred_at"`
}

func toClientView(c domain.Customer) clientView {
	return clientView{
		ID:           c.ID,
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		DateOfBirth:  c.DateOfBirth.Format(domain.DateLayout),
		Address:      c.Address,
		AddressLine2: c.AddressLine2,
		Neighborhood: c.Neighborhood,
		PostalCode:   c.PostalCode,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		DeletedAt:    c.DeletedAt,
	}
}

func (s *Server) toProductView(p domain.Product) productView {
	return productView{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price.StringFixed(2),
		Image:     p.Image,
		ImageURL:  s.imageURL(p.Image),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		DeletedAt: p.DeletedAt,
	}
}

func (s *Server) toOrderView(a domain.OrderAggregate) orderView {
	products := make([]orderProductView, 0, len(a.Items))
	for _, item := range a.Items {
		products = append(products, orderProductView{
			productView: s.toProductView(item.Product),
			Pivot: pivotView{
				OrderID:   item.OrderID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				CreatedAt: item.CreatedAt,
				UpdatedAt: item.UpdatedAt,
			},
		})
	}

	return orderView{
		ID:        a.Order.ID,
		ClientID:  a.Order.CustomerID,
		CreatedAt: a.Order.CreatedAt,
		UpdatedAt: a.Order.UpdatedAt,
		DeletedAt: a.Order.DeletedAt,
		Client:    toClientView(a.Customer),
		Products:  products,
		Total:     a.Total().StringFixed(2),
	}
}
