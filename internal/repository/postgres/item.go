package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
	"github.com/utafrali/CatalogGo/pkg/database"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

const itemColumns = `id, product_id, distributor_id, price::text, sku, available, created_at, updated_at`

// ItemRepository implements repository.ItemRepository using PostgreSQL.
type ItemRepository struct {
	pool database.DBTX
}

// NewItemRepository creates a new PostgreSQL-backed item repository.
func NewItemRepository(pool database.DBTX) *ItemRepository {
	return &ItemRepository{pool: pool}
}

func scanItem(row pgx.Row, extra ...any) (*domain.Item, error) {
	var (
		it    domain.Item
		price string
	)
	dest := []any{&it.ID, &it.ProductID, &it.DistributorID, &price, &it.SKU, &it.Available, &it.CreatedAt, &it.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	it.Price = p
	return &it, nil
}

func itemValues(it *domain.Item) map[string]string {
	return map[string]string{"sku": it.SKU}
}

// Create inserts an item and queues its product for reindexing.
func (r *ItemRepository) Create(ctx context.Context, it *domain.Item) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO items (id, product_id, distributor_id, price, sku, available, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, it.ProductID, it.DistributorID, it.Price.String(), it.SKU, it.Available, it.CreatedAt, it.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert item: %w", writeError(err, "item", "items", itemValues(it)))
		}

		if _, err := tx.Exec(ctx, enqueueProductSQL, it.ProductID); err != nil {
			return fmt.Errorf("enqueue item product: %w", err)
		}
		return nil
	})
}

// GetByID retrieves an item by its ID.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("item", id)
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	return it, nil
}

// List returns a page of items, optionally narrowed to a product or
// distributor, ordered by creation time.
func (r *ItemRepository) List(ctx context.Context, f repository.ItemFilter) ([]domain.Item, int, error) {
	limit, offset := limitOffset(f.ListParams)

	var (
		conditions []string
		args       []any
	)
	if f.ProductID != nil {
		args = append(args, *f.ProductID)
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if f.DistributorID != nil {
		args = append(args, *f.DistributorID)
		conditions = append(conditions, fmt.Sprintf("distributor_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM items
		%s
		ORDER BY created_at, id
		LIMIT $%d OFFSET $%d`, itemColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var (
		out   []domain.Item
		total int
	)
	for rows.Next() {
		it, err := scanItem(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan item row: %w", err)
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate item rows: %w", err)
	}

	if out == nil {
		out = []domain.Item{}
	}
	return out, total, nil
}

// Update writes item fields. The product the item belonged to before the
// update and the one it belongs to after are both queued.
func (r *ItemRepository) Update(ctx context.Context, it *domain.Item) error {
	it.UpdatedAt = time.Now().UTC()

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, enqueueItemSQL, it.ID)
		if err != nil {
			return fmt.Errorf("enqueue previous item product: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("item", it.ID)
		}

		_, err = tx.Exec(ctx, `
			UPDATE items
			SET product_id = $1, distributor_id = $2, price = $3, sku = $4, available = $5, updated_at = $6
			WHERE id = $7`,
			it.ProductID, it.DistributorID, it.Price.String(), it.SKU, it.Available, it.UpdatedAt, it.ID,
		)
		if err != nil {
			return fmt.Errorf("update item: %w", writeError(err, "item", "items", itemValues(it)))
		}

		if _, err := tx.Exec(ctx, enqueueProductSQL, it.ProductID); err != nil {
			return fmt.Errorf("enqueue item product: %w", err)
		}
		return nil
	})
}

// Delete removes an item and queues its product for reindexing.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, enqueueItemSQL, id)
		if err != nil {
			return fmt.Errorf("enqueue item product: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("item", id)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM items WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		return nil
	})
}
