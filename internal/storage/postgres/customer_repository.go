package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const customerColumns = `id, name, email, phone, date_of_birth, address, address_line2,
	neighborhood, postal_code, created_at, updated_at, deleted_at`

type customerRepository struct {
	store *Store
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{store: store}
}

func (r *customerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.conn(ctx).QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE deleted_at IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Customer, 0)
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return result, nil
}

func (r *customerRepository) Get(ctx context.Context, id int64) (domain.Customer, error) {
	return r.get(ctx, id, false)
}

func (r *customerRepository) GetWithDeleted(ctx context.Context, id int64) (domain.Customer, error) {
	return r.get(ctx, id, true)
}

func (r *customerRepository) get(ctx context.Context, id int64, withDeleted bool) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	if !withDeleted {
		query += ` AND deleted_at IS NULL`
	}

	customer, err := scanCustomer(r.store.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, domain.NotFound(domain.EntityClient, id)
	}
	return customer, err
}

func (r *customerRepository) Create(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	err := r.store.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO customers (
			name, email, phone, date_of_birth, address, address_line2,
			neighborhood, postal_code, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
		RETURNING id
	`,
		c.Name, c.Email, c.Phone, c.DateOfBirth, c.Address, c.AddressLine2,
		c.Neighborhood, c.PostalCode, now,
	).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, emailTaken()
		}
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}

	c.CreatedAt = now
	c.UpdatedAt = now
	c.DeletedAt = nil
	return c, nil
}

func (r *customerRepository) Update(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	err := r.store.conn(ctx).QueryRowContext(ctx, `
		UPDATE customers
		SET name = $2, email = $3, phone = $4, date_of_birth = $5, address = $6,
		    address_line2 = $7, neighborhood = $8, postal_code = $9, updated_at = $10
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING created_at
	`,
		c.ID, c.Name, c.Email, c.Phone, c.DateOfBirth, c.Address,
		c.AddressLine2, c.Neighborhood, c.PostalCode, now,
	).Scan(&c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.NotFound(domain.EntityClient, c.ID)
		}
		if isUniqueViolation(err) {
			return domain.Customer{}, emailTaken()
		}
		return domain.Customer{}, fmt.Errorf("update customer: %w", err)
	}

	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = now
	c.DeletedAt = nil
	return c, nil
}

func (r *customerRepository) SoftDelete(ctx context.Context, id int64) error {
	return softDeleteRow(ctx, r.store.conn(ctx), "customers", domain.EntityClient, id)
}

func (r *customerRepository) Restore(ctx context.Context, id int64) error {
	return restoreRow(ctx, r.store.conn(ctx), "customers", domain.EntityClient, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (domain.Customer, error) {
	var (
		c            domain.Customer
		addressLine2 sql.NullString
		deletedAt    sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.DateOfBirth, &c.Address, &addressLine2,
		&c.Neighborhood, &c.PostalCode, &c.CreatedAt, &c.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, err
		}
		return domain.Customer{}, fmt.Errorf("scan customer: %w", err)
	}
	if addressLine2.Valid {
		v := addressLine2.String
		c.AddressLine2 = &v
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	c.DeletedAt = nullTimePtr(deletedAt)
	return c, nil
}

func emailTaken() error {
	return &domain.ConflictError{Field: "email", Message: "The email has already been taken."}
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
