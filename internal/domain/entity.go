package domain

import "time"

// Entity — имя сущности, которое попадает в пользовательские сообщения об ошибках.
type Entity string

const (
	EntityClient  Entity = "Client"
	EntityProduct Entity = "Product"
	EntityOrder   Entity = "Order"
)

// Record — общие служебные поля строки с мягким удалением.
// Встраивается в Customer, Product и Order.
type Record struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
	// DeletedAt == nil означает, что запись активна.
	DeletedAt *time.Time
}

// Meta возвращает указатель на служебные поля; используется обобщёнными хранилищами.
func (r *Record) Meta() *Record {
	return r
}

// Deleted сообщает, помечена ли запись как удалённая.
func (r Record) Deleted() bool {
	return r.DeletedAt != nil
}
