package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
	"github.com/utafrali/CatalogGo/pkg/database"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// ManufacturerRepository implements repository.ManufacturerRepository using PostgreSQL.
type ManufacturerRepository struct {
	pool database.DBTX
}

// NewManufacturerRepository creates a new PostgreSQL-backed manufacturer repository.
func NewManufacturerRepository(pool database.DBTX) *ManufacturerRepository {
	return &ManufacturerRepository{pool: pool}
}

// Create inserts a new manufacturer.
func (r *ManufacturerRepository) Create(ctx context.Context, m *domain.Manufacturer) error {
	query := `
		INSERT INTO manufacturers (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, m.ID, m.Name, m.Slug, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert manufacturer: %w", writeError(err, "manufacturer", "manufacturers", map[string]string{
			"name": m.Name, "slug": m.Slug,
		}))
	}
	return nil
}

// GetByID retrieves a manufacturer by its ID.
func (r *ManufacturerRepository) GetByID(ctx context.Context, id string) (*domain.Manufacturer, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM manufacturers
		WHERE id = $1`

	var m domain.Manufacturer
	err := r.pool.QueryRow(ctx, query, id).Scan(&m.ID, &m.Name, &m.Slug, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("manufacturer", id)
		}
		return nil, fmt.Errorf("scan manufacturer: %w", err)
	}
	return &m, nil
}

// List returns a page of manufacturers ordered by name with the total count.
func (r *ManufacturerRepository) List(ctx context.Context, params repository.ListParams) ([]domain.Manufacturer, int, error) {
	limit, offset := limitOffset(params)

	query := `
		SELECT id, name, slug, created_at, updated_at, count(*) OVER() AS total_count
		FROM manufacturers
		ORDER BY name
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list manufacturers: %w", err)
	}
	defer rows.Close()

	var (
		out   []domain.Manufacturer
		total int
	)
	for rows.Next() {
		var m domain.Manufacturer
		if err := rows.Scan(&m.ID, &m.Name, &m.Slug, &m.CreatedAt, &m.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan manufacturer row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate manufacturer rows: %w", err)
	}

	if out == nil {
		out = []domain.Manufacturer{}
	}
	return out, total, nil
}

// Update renames a manufacturer and queues its products for reindexing.
func (r *ManufacturerRepository) Update(ctx context.Context, m *domain.Manufacturer) error {
	m.UpdatedAt = time.Now().UTC()

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx,
			`UPDATE manufacturers SET name = $1, updated_at = $2 WHERE id = $3`,
			m.Name, m.UpdatedAt, m.ID,
		)
		if err != nil {
			return fmt.Errorf("update manufacturer: %w", writeError(err, "manufacturer", "manufacturers", map[string]string{
				"name": m.Name,
			}))
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("manufacturer", m.ID)
		}

		if _, err := tx.Exec(ctx, enqueueManufacturerSQL, m.ID); err != nil {
			return fmt.Errorf("enqueue manufacturer products: %w", err)
		}
		return nil
	})
}

// Delete removes a manufacturer. Its products are removed by cascade and
// queued for reindexing first so their documents get dropped.
func (r *ManufacturerRepository) Delete(ctx context.Context, id string) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, enqueueManufacturerSQL, id); err != nil {
			return fmt.Errorf("enqueue manufacturer products: %w", err)
		}

		ct, err := tx.Exec(ctx, `DELETE FROM manufacturers WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete manufacturer: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("manufacturer", id)
		}
		return nil
	})
}

// SlugExists reports whether a manufacturer already uses slug.
func (r *ManufacturerRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM manufacturers WHERE slug = $1)`, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("check manufacturer slug: %w", err)
	}
	return exists, nil
}
