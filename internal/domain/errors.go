package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound — сущность отсутствует или скрыта мягким удалением.
	ErrNotFound = errors.New("not found")
	// ErrValidation — некорректные или отсутствующие входные данные.
	ErrValidation = errors.New("validation failed")
	// ErrConflict — нарушение уникальности (например, email клиента).
	ErrConflict = errors.New("conflict")
	// ErrInvalidState — операция недопустима в текущем состоянии (restore не удалённой записи).
	ErrInvalidState = errors.New("invalid state")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrImageStore — ошибка хранилища изображений.
	ErrImageStore = errors.New("image store failed")

	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")
	ErrIdempotencyKeyAlreadyExists    = errors.New("idempotency key already exists")
	ErrIdempotencyHashMismatch        = errors.New("idempotency key reused with different request")
)

// NotFoundError указывает, какая сущность не найдена.
type NotFoundError struct {
	Entity Entity
	ID     int64
}

// NotFound конструирует ошибку отсутствующей сущности.
func NotFound(entity Entity, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found.", e.Entity)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// StateError — restore запрошен для записи, которая не удалена.
type StateError struct {
	Entity Entity
	ID     int64
}

// NotDeleted конструирует ошибку недопустимого состояния для restore.
func NotDeleted(entity Entity, id int64) error {
	return &StateError{Entity: entity, ID: id}
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s is not deleted.", e.Entity)
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// ConflictError — нарушение уникального ограничения на конкретном поле.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ValidationError накапливает ошибки по полям.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError создаёт пустой накопитель ошибок.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add добавляет сообщение к полю.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Merge переносит ошибки другого ValidationError.
func (e *ValidationError) Merge(err error) {
	var other *ValidationError
	if !errors.As(err, &other) {
		return
	}
	for field, messages := range other.Fields {
		e.Fields[field] = append(e.Fields[field], messages...)
	}
}

// Err возвращает nil, если ошибок нет.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e.Fields[field], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// IsNotFound проверяет, является ли ошибка отсутствием сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsIdempotencyConflict проверяет, является ли ошибка конфликтом idempotency-key.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) || errors.Is(err, ErrIdempotencyHashMismatch)
}
