package domain

import "github.com/shopspring/decimal"

// Product — позиция каталога.
type Product struct {
	Record

	Name string
	// Price — неотрицательная цена с двумя знаками после запятой.
	Price decimal.Decimal
	// Image — непрозрачный путь к объекту в хранилище изображений.
	Image string
}
