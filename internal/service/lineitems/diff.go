package lineitems

import "github.com/vladislavdragonenkov/storefront/internal/domain"

// Plan — набор изменений, переводящий текущие позиции заказа в запрошенные.
type Plan struct {
	// Insert — товары, которых ещё нет в заказе (в порядке запроса).
	Insert []domain.ItemRequest
	// Update — товары, которые есть и там и там; количество перезаписывается всегда.
	Update []domain.ItemRequest
	// Remove — товары, отсутствующие в запросе (в порядке добавления).
	Remove []int64
}

// Empty сообщает, что план не содержит ни одной записи.
func (p Plan) Empty() bool {
	return len(p.Insert) == 0 && len(p.Update) == 0 && len(p.Remove) == 0
}

// Diff сравнивает текущие позиции с запрошенными по id товара.
// requested должен быть уже проверен domain.ValidateItems (без дубликатов).
func Diff(current []domain.LineItem, requested []domain.ItemRequest) Plan {
	existing := make(map[int64]struct{}, len(current))
	for _, item := range current {
		existing[item.ProductID] = struct{}{}
	}

	wanted := make(map[int64]struct{}, len(requested))
	var plan Plan
	for _, item := range requested {
		wanted[item.ProductID] = struct{}{}
		if _, ok := existing[item.ProductID]; ok {
			plan.Update = append(plan.Update, item)
		} else {
			plan.Insert = append(plan.Insert, item)
		}
	}

	for _, item := range current {
		if _, ok := wanted[item.ProductID]; !ok {
			plan.Remove = append(plan.Remove, item.ProductID)
		}
	}

	return plan
}
