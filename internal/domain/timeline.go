package domain

import "time"

// Типы событий таймлайна заказа.
const (
	TimelineOrderCreated  = "OrderCreated"
	TimelineOrderUpdated  = "OrderUpdated"
	TimelineOrderDeleted  = "OrderDeleted"
	TimelineOrderRestored = "OrderRestored"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  int64
	Type     string
	Reason   string
	Occurred time.Time
}
