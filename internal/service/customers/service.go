package customers

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/validation"
)

const (
	maxNameLength       = 255
	maxEmailLength      = 255
	maxPhoneLength      = 20
	maxPostalCodeLength = 10
)

// Input — поля клиента из запроса. nil означает, что поле не передано.
type Input struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	DateOfBirth  *string `json:"date_of_birth"`
	Address      *string `json:"address"`
	AddressLine2 *string `json:"address_line2"`
	Neighborhood *string `json:"neighborhood"`
	PostalCode   *string `json:"postal_code"`
}

// Service управляет клиентами и служит CustomerLookup для заказов.
type Service struct {
	repo   domain.CustomerRepository
	logger *log.Entry
}

// NewService создаёт сервис клиентов.
func NewService(repo domain.CustomerRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "customers")
	}
	return &Service{repo: repo, logger: logger}
}

// List возвращает всех не удалённых клиентов.
func (s *Service) List(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.List(ctx)
}

// Get возвращает видимого клиента.
func (s *Service) Get(ctx context.Context, id int64) (domain.Customer, error) {
	return s.repo.Get(ctx, id)
}

// Resolve реализует domain.CustomerLookup: удалённый клиент считается отсутствующим.
func (s *Service) Resolve(ctx context.Context, id int64) (domain.Customer, error) {
	return s.repo.Get(ctx, id)
}

// Create проверяет все обязательные поля и сохраняет клиента.
func (s *Service) Create(ctx context.Context, in Input) (domain.Customer, error) {
	var customer domain.Customer
	if err := apply(&customer, in, true); err != nil {
		return domain.Customer{}, err
	}

	created, err := s.repo.Create(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithField("client_id", created.ID).Info("client created")
	return created, nil
}

// Update применяет только переданные поля.
func (s *Service) Update(ctx context.Context, id int64, in Input) (domain.Customer, error) {
	customer, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if err := apply(&customer, in, false); err != nil {
		return domain.Customer{}, err
	}

	updated, err := s.repo.Update(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithField("client_id", id).Info("client updated")
	return updated, nil
}

// Delete помечает клиента удалённым. Заказы продолжают ссылаться на него.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("client_id", id).Info("client deleted")
	return nil
}

// Restore снимает отметку удаления.
func (s *Service) Restore(ctx context.Context, id int64) error {
	if err := s.repo.Restore(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("client_id", id).Info("client restored")
	return nil
}

// apply проверяет Input и переносит переданные поля в customer.
// required=true требует всех обязательных полей (создание).
func apply(customer *domain.Customer, in Input, required bool) error {
	check := validation.New()

	if check.Required("name", in.Name, required) {
		check.MaxLen("name", *in.Name, maxNameLength)
		if check.Valid("name") {
			customer.Name = strings.TrimSpace(*in.Name)
		}
	}

	if check.Required("email", in.Email, required) {
		email := strings.TrimSpace(*in.Email)
		check.MaxLen("email", email, maxEmailLength)
		check.Email("email", email)
		if check.Valid("email") {
			customer.Email = email
		}
	}

	if check.Required("phone", in.Phone, required) {
		check.MaxLen("phone", *in.Phone, maxPhoneLength)
		if check.Valid("phone") {
			customer.Phone = strings.TrimSpace(*in.Phone)
		}
	}

	if check.Required("date_of_birth", in.DateOfBirth, required) {
		if dob, ok := check.Date("date_of_birth", *in.DateOfBirth); ok {
			customer.DateOfBirth = dob
		}
	}

	if check.Required("address", in.Address, required) {
		customer.Address = strings.TrimSpace(*in.Address)
	}

	// address_line2 необязателен; пустая строка очищает значение.
	if in.AddressLine2 != nil {
		if line2 := strings.TrimSpace(*in.AddressLine2); line2 == "" {
			customer.AddressLine2 = nil
		} else {
			customer.AddressLine2 = &line2
		}
	}

	if check.Required("neighborhood", in.Neighborhood, required) {
		customer.Neighborhood = strings.TrimSpace(*in.Neighborhood)
	}

	if check.Required("postal_code", in.PostalCode, required) {
		check.MaxLen("postal_code", *in.PostalCode, maxPostalCodeLength)
		if check.Valid("postal_code") {
			customer.PostalCode = strings.TrimSpace(*in.PostalCode)
		}
	}

	if err := check.Err(); err != nil {
		return fmt.Errorf("client input: %w", err)
	}
	return nil
}

var _ domain.CustomerLookup = (*Service)(nil)
