// Package validation содержит правила проверки входных полей и формулировки
// сообщений, общие для клиентов, товаров и заказов.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Checker накапливает ошибки по полям в domain.ValidationError.
type Checker struct {
	verr *domain.ValidationError
}

// New создаёт пустой Checker.
func New() *Checker {
	return &Checker{verr: domain.NewValidationError()}
}

// Err возвращает *domain.ValidationError или nil.
func (c *Checker) Err() error {
	return c.verr.Err()
}

// Fail добавляет произвольное сообщение к полю.
func (c *Checker) Fail(field, message string) {
	c.verr.Add(field, message)
}

// Valid сообщает, что по полю ещё нет ошибок.
func (c *Checker) Valid(field string) bool {
	return len(c.verr.Fields[field]) == 0
}

// Required проверяет, что значение передано и не пустое.
// required=false пропускает отсутствующее значение (частичное обновление).
func (c *Checker) Required(field string, value *string, required bool) bool {
	if value == nil {
		if required {
			c.Fail(field, fmt.Sprintf("The %s field is required.", Attribute(field)))
		}
		return false
	}
	if strings.TrimSpace(*value) == "" {
		c.Fail(field, fmt.Sprintf("The %s field is required.", Attribute(field)))
		return false
	}
	return true
}

// MaxLen ограничивает длину строки в символах.
func (c *Checker) MaxLen(field, value string, limit int) {
	if utf8.RuneCountInString(value) > limit {
		c.Fail(field, fmt.Sprintf("The %s field must not be greater than %d characters.", Attribute(field), limit))
	}
}

// Email проверяет формат адреса.
func (c *Checker) Email(field, value string) {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		c.Fail(field, fmt.Sprintf("The %s field must be a valid email address.", Attribute(field)))
	}
}

// Date разбирает дату в формате domain.DateLayout.
func (c *Checker) Date(field, value string) (time.Time, bool) {
	parsed, err := time.Parse(domain.DateLayout, strings.TrimSpace(value))
	if err != nil {
		c.Fail(field, fmt.Sprintf("The %s field must be a valid date.", Attribute(field)))
		return time.Time{}, false
	}
	return parsed, true
}

// Price разбирает неотрицательную цену с не более чем двумя знаками после запятой.
func (c *Checker) Price(field, value string) (decimal.Decimal, bool) {
	price, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		c.Fail(field, fmt.Sprintf("The %s field must be a number.", Attribute(field)))
		return decimal.Decimal{}, false
	}
	if price.IsNegative() {
		c.Fail(field, fmt.Sprintf("The %s field must be at least 0.", Attribute(field)))
		return decimal.Decimal{}, false
	}
	if price.Exponent() < -2 && !price.Equal(price.Round(2)) {
		c.Fail(field, fmt.Sprintf("The %s field must have 0-2 decimal places.", Attribute(field)))
		return decimal.Decimal{}, false
	}
	return price.Round(2), true
}

// Attribute превращает ключ поля в читаемое имя: date_of_birth → date of birth.
func Attribute(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
