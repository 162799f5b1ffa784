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

// DistributorRepository implements repository.DistributorRepository using PostgreSQL.
type DistributorRepository struct {
	pool database.DBTX
}

// NewDistributorRepository creates a new PostgreSQL-backed distributor repository.
func NewDistributorRepository(pool database.DBTX) *DistributorRepository {
	return &DistributorRepository{pool: pool}
}

// Create inserts a new distributor.
func (r *DistributorRepository) Create(ctx context.Context, m *domain.Distributor) error {
	query := `
		INSERT INTO distributors (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, m.ID, m.Name, m.Slug, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert distributor: %w", writeError(err, "distributor", "distributors", map[string]string{
			"name": m.Name, "slug": m.Slug,
		}))
	}
	return nil
}

// GetByID retrieves a distributor by its ID.
func (r *DistributorRepository) GetByID(ctx context.Context, id string) (*domain.Distributor, error) {
	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM distributors
		WHERE id = $1`

	var m domain.Distributor
	err := r.pool.QueryRow(ctx, query, id).Scan(&m.ID, &m.Name, &m.Slug, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("distributor", id)
		}
		return nil, fmt.Errorf("scan distributor: %w", err)
	}
	return &m, nil
}

// List returns a page of distributors ordered by name with the total count.
func (r *DistributorRepository) List(ctx context.Context, params repository.ListParams) ([]domain.Distributor, int, error) {
	limit, offset := limitOffset(params)

	query := `
		SELECT id, name, slug, created_at, updated_at, count(*) OVER() AS total_count
		FROM distributors
		ORDER BY name
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list distributors: %w", err)
	}
	defer rows.Close()

	var (
		out   []domain.Distributor
		total int
	)
	for rows.Next() {
		var m domain.Distributor
		if err := rows.Scan(&m.ID, &m.Name, &m.Slug, &m.CreatedAt, &m.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan distributor row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate distributor rows: %w", err)
	}

	if out == nil {
		out = []domain.Distributor{}
	}
	return out, total, nil
}

// Update renames a distributor and queues every product it has items for.
func (r *DistributorRepository) Update(ctx context.Context, m *domain.Distributor) error {
	m.UpdatedAt = time.Now().UTC()

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx,
			`UPDATE distributors SET name = $1, updated_at = $2 WHERE id = $3`,
			m.Name, m.UpdatedAt, m.ID,
		)
		if err != nil {
			return fmt.Errorf("update distributor: %w", writeError(err, "distributor", "distributors", map[string]string{
				"name": m.Name,
			}))
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("distributor", m.ID)
		}

		if _, err := tx.Exec(ctx, enqueueDistributorSQL, m.ID); err != nil {
			return fmt.Errorf("enqueue distributor products: %w", err)
		}
		return nil
	})
}

// Delete removes a distributor and, by cascade, its items. The products those
// items belonged to are queued before the rows disappear.
func (r *DistributorRepository) Delete(ctx context.Context, id string) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, enqueueDistributorSQL, id); err != nil {
			return fmt.Errorf("enqueue distributor products: %w", err)
		}

		ct, err := tx.Exec(ctx, `DELETE FROM distributors WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete distributor: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("distributor", id)
		}
		return nil
	})
}

// SlugExists reports whether a distributor already uses slug.
func (r *DistributorRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM distributors WHERE slug = $1)`, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("check distributor slug: %w", err)
	}
	return exists, nil
}
