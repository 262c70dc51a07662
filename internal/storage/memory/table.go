package memory

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// recordPtr ограничивает типы, у которых есть служебные поля domain.Record.
type recordPtr[T any] interface {
	*T
	Meta() *domain.Record
}

// uniqueKeyFunc возвращает поле и значение уникального ключа; пустое значение не индексируется.
type uniqueKeyFunc[T any] func(T) (field, value string)

// table — однотабличная сущность с мягким удалением.
type table[T any, P recordPtr[T]] struct {
	entity domain.Entity
	unique uniqueKeyFunc[T]
	nextID int64
	rows   map[int64]T
	ids    []int64
}

func newTable[T any, P recordPtr[T]](entity domain.Entity, unique uniqueKeyFunc[T]) *table[T, P] {
	return &table[T, P]{
		entity: entity,
		unique: unique,
		rows:   make(map[int64]T),
	}
}

func (t *table[T, P]) clone() *table[T, P] {
	rows := make(map[int64]T, len(t.rows))
	for id, row := range t.rows {
		rows[id] = row
	}
	return &table[T, P]{
		entity: t.entity,
		unique: t.unique,
		nextID: t.nextID,
		rows:   rows,
		ids:    append([]int64(nil), t.ids...),
	}
}

func (t *table[T, P]) list() []T {
	result := make([]T, 0, len(t.rows))
	for _, id := range t.ids {
		row := t.rows[id]
		if P(&row).Meta().Deleted() {
			continue
		}
		result = append(result, row)
	}
	return result
}

func (t *table[T, P]) get(id int64, withDeleted bool) (T, error) {
	row, ok := t.rows[id]
	if !ok || (!withDeleted && P(&row).Meta().Deleted()) {
		var zero T
		return zero, domain.NotFound(t.entity, id)
	}
	return row, nil
}

func (t *table[T, P]) create(row T, now time.Time) (T, error) {
	if err := t.checkUnique(row, 0); err != nil {
		var zero T
		return zero, err
	}

	t.nextID++
	meta := P(&row).Meta()
	meta.ID = t.nextID
	meta.CreatedAt = now
	meta.UpdatedAt = now
	meta.DeletedAt = nil

	t.rows[meta.ID] = row
	t.ids = append(t.ids, meta.ID)
	return row, nil
}

func (t *table[T, P]) update(row T, now time.Time) (T, error) {
	meta := P(&row).Meta()
	current, err := t.get(meta.ID, false)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := t.checkUnique(row, meta.ID); err != nil {
		var zero T
		return zero, err
	}

	currentMeta := P(&current).Meta()
	meta.CreatedAt = currentMeta.CreatedAt
	meta.DeletedAt = nil
	meta.UpdatedAt = now

	t.rows[meta.ID] = row
	return row, nil
}

func (t *table[T, P]) softDelete(id int64, now time.Time) error {
	row, err := t.get(id, false)
	if err != nil {
		return err
	}
	meta := P(&row).Meta()
	deletedAt := now
	meta.DeletedAt = &deletedAt
	meta.UpdatedAt = now
	t.rows[id] = row
	return nil
}

func (t *table[T, P]) restore(id int64, now time.Time) error {
	row, err := t.get(id, true)
	if err != nil {
		return err
	}
	meta := P(&row).Meta()
	if !meta.Deleted() {
		return domain.NotDeleted(t.entity, id)
	}
	meta.DeletedAt = nil
	meta.UpdatedAt = now
	t.rows[id] = row
	return nil
}

// checkUnique учитывает и удалённые строки: уникальный индекс в БД ведёт себя так же.
func (t *table[T, P]) checkUnique(row T, selfID int64) error {
	if t.unique == nil {
		return nil
	}
	field, value := t.unique(row)
	if value == "" {
		return nil
	}
	for id, existing := range t.rows {
		if id == selfID {
			continue
		}
		if _, other := t.unique(existing); other == value {
			return &domain.ConflictError{
				Field:   field,
				Message: fmt.Sprintf("The %s has already been taken.", field),
			}
		}
	}
	return nil
}
