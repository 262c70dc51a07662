package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Order — строка заказа. Позиции хранятся отдельно в таблице связей.
type Order struct {
	Record

	// CustomerID не меняет идентичность после создания, даже если клиент позже удалён.
	CustomerID int64
}

// LineItem — связь заказ↔товар с количеством. Ключ — (OrderID, ProductID).
type LineItem struct {
	OrderID   int64
	ProductID int64
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResolvedLineItem — позиция вместе с текущим состоянием товара (не снимок на момент заказа).
type ResolvedLineItem struct {
	LineItem
	Product Product
}

// Total возвращает цену позиции: unit price * quantity.
func (i ResolvedLineItem) Total() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderAggregate — заказ вместе с клиентом и позициями; собирается заново на каждый запрос.
type OrderAggregate struct {
	Order    Order
	Customer Customer
	Items    []ResolvedLineItem
}

// Total суммирует стоимость всех позиций.
func (a OrderAggregate) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range a.Items {
		total = total.Add(item.Total())
	}
	return total
}

// MaxQuantity — верхняя граница количества в позиции (колонка INT).
const MaxQuantity = math.MaxInt32

// ItemRequest — запрошенная позиция: товар и количество.
type ItemRequest struct {
	ProductID int64 `json:"id"`
	Quantity  int   `json:"quantity"`
}

// ValidateItems проверяет набор позиций: непустой, количество >= 1,
// каждый товар встречается не более одного раза. field — префикс ключей ошибок.
func ValidateItems(field string, items []ItemRequest) error {
	verr := NewValidationError()
	if len(items) == 0 {
		verr.Add(field, fmt.Sprintf("The %s field must have at least 1 items.", field))
		return verr
	}

	seen := make(map[int64]int, len(items))
	for idx, item := range items {
		key := fmt.Sprintf("%s.%d", field, idx)
		if item.ProductID <= 0 {
			verr.Add(key+".id", fmt.Sprintf("The %s.id field is required.", key))
		} else if first, dup := seen[item.ProductID]; dup {
			verr.Add(key+".id", fmt.Sprintf("The %s.id field duplicates %s.%d.id.", key, field, first))
		} else {
			seen[item.ProductID] = idx
		}
		switch {
		case item.Quantity < 1:
			verr.Add(key+".quantity", fmt.Sprintf("The %s.quantity field must be at least 1.", key))
		case item.Quantity > MaxQuantity:
			verr.Add(key+".quantity", fmt.Sprintf("The %s.quantity field must not be greater than %d.", key, MaxQuantity))
		}
	}

	return verr.Err()
}
