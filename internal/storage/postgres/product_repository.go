package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const productColumns = `id, name, price, image, created_at, updated_at, deleted_at`

type productRepository struct {
	store *Store
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{store: store}
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.conn(ctx).QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE deleted_at IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return result, nil
}

func (r *productRepository) Get(ctx context.Context, id int64) (domain.Product, error) {
	return r.get(ctx, id, false)
}

func (r *productRepository) GetWithDeleted(ctx context.Context, id int64) (domain.Product, error) {
	return r.get(ctx, id, true)
}

func (r *productRepository) get(ctx context.Context, id int64, withDeleted bool) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if !withDeleted {
		query += ` AND deleted_at IS NULL`
	}

	product, err := scanProduct(r.store.conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.NotFound(domain.EntityProduct, id)
	}
	return product, err
}

func (r *productRepository) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if err := r.store.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO products (name, price, image, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$4)
		RETURNING id
	`, p.Name, p.Price, p.Image, now).Scan(&p.ID); err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}

	p.CreatedAt = now
	p.UpdatedAt = now
	p.DeletedAt = nil
	return p, nil
}

func (r *productRepository) Update(ctx context.Context, p domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	err := r.store.conn(ctx).QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, price = $3, image = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING created_at
	`, p.ID, p.Name, p.Price, p.Image, now).Scan(&p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.NotFound(domain.EntityProduct, p.ID)
		}
		return domain.Product{}, fmt.Errorf("update product: %w", err)
	}

	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = now
	p.DeletedAt = nil
	return p, nil
}

func (r *productRepository) SoftDelete(ctx context.Context, id int64) error {
	return softDeleteRow(ctx, r.store.conn(ctx), "products", domain.EntityProduct, id)
}

func (r *productRepository) Restore(ctx context.Context, id int64) error {
	return restoreRow(ctx, r.store.conn(ctx), "products", domain.EntityProduct, id)
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p         domain.Product
		deletedAt sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.CreatedAt, &p.UpdatedAt, &deletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, err
		}
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	p.DeletedAt = nullTimePtr(deletedAt)
	return p, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
