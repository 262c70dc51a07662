package domain

import "time"

// Customer — клиент магазина. Заказ ссылается на клиента, но не владеет им.
type Customer struct {
	Record

	Name         string
	Email        string
	Phone        string
	DateOfBirth  time.Time
	Address      string
	AddressLine2 *string
	Neighborhood string
	PostalCode   string
}

// DateLayout — формат дат без времени (date_of_birth).
const DateLayout = "2006-01-02"
