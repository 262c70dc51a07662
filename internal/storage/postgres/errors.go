package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	opTimeout = 5 * time.Second

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return false
}

// softDeleteRow ставит deleted_at только на видимой строке.
func softDeleteRow(ctx context.Context, q querier, table string, entity domain.Entity, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	res, err := q.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, table), id, now)
	if err != nil {
		return fmt.Errorf("soft delete %s: %w", table, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s soft delete: %w", table, err)
	}
	if affected == 0 {
		return domain.NotFound(entity, id)
	}
	return nil
}

// restoreRow различает отсутствующую строку (NotFound) и не удалённую (StateError).
func restoreRow(ctx context.Context, q querier, table string, entity domain.Entity, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var deletedAt sql.NullTime
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT deleted_at FROM %s WHERE id = $1`, table), id).Scan(&deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(entity, id)
		}
		return fmt.Errorf("load %s for restore: %w", table, err)
	}
	if !deletedAt.Valid {
		return domain.NotDeleted(entity, id)
	}

	if _, err := q.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NULL, updated_at = $2
		WHERE id = $1
	`, table), id, time.Now().UTC()); err != nil {
		return fmt.Errorf("restore %s: %w", table, err)
	}
	return nil
}

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
