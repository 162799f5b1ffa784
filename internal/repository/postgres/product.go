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

const productColumns = `id, manufacturer_id, name, slug, ean, description, created_at, updated_at`

// ProductRepository implements repository.ProductRepository and
// repository.GraphLoader using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func scanProduct(row pgx.Row, extra ...any) (*domain.Product, error) {
	var p domain.Product
	dest := []any{&p.ID, &p.ManufacturerID, &p.Name, &p.Slug, &p.EAN, &p.Description, &p.CreatedAt, &p.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &p, nil
}

func productValues(p *domain.Product) map[string]string {
	return map[string]string{"name": p.Name, "slug": p.Slug, "ean": p.EAN, "manufacturer": p.ManufacturerID}
}

// Create inserts a product and queues it for indexing.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO products (`+productColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.ManufacturerID, p.Name, p.Slug, p.EAN, p.Description, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert product: %w", writeError(err, "product", "products", productValues(p)))
		}

		if _, err := tx.Exec(ctx, enqueueProductSQL, p.ID); err != nil {
			return fmt.Errorf("enqueue product: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", slug)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

// List returns a page of products ordered by name with the total count.
func (r *ProductRepository) List(ctx context.Context, params repository.ListParams) ([]domain.Product, int, error) {
	limit, offset := limitOffset(params)

	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+`, count(*) OVER() AS total_count
		FROM products
		ORDER BY name
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return collectProducts(rows)
}

// likeEscaper makes LIKE wildcards in user text match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches name and description case-insensitively as literal
// substrings, newest first.
func (r *ProductRepository) Search(ctx context.Context, q repository.LegacyQuery) ([]domain.Product, int, error) {
	limit, offset := limitOffset(repository.ListParams{Page: q.Page, PerPage: q.PerPage})

	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+`, count(*) OVER() AS total_count
		FROM products
		WHERE $1 = ''
			OR name ILIKE '%' || $1 || '%' ESCAPE '\'
			OR description ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, likeEscaper.Replace(q.Text), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search products: %w", err)
	}
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]domain.Product, int, error) {
	defer rows.Close()

	var (
		out   []domain.Product
		total int
	)
	for rows.Next() {
		p, err := scanProduct(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if out == nil {
		out = []domain.Product{}
	}
	return out, total, nil
}

// Update writes product fields and queues the product for reindexing.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE products
			SET manufacturer_id = $1, name = $2, ean = $3, description = $4, updated_at = $5
			WHERE id = $6`,
			p.ManufacturerID, p.Name, p.EAN, p.Description, p.UpdatedAt, p.ID,
		)
		if err != nil {
			return fmt.Errorf("update product: %w", writeError(err, "product", "products", productValues(p)))
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("product", p.ID)
		}

		if _, err := tx.Exec(ctx, enqueueProductSQL, p.ID); err != nil {
			return fmt.Errorf("enqueue product: %w", err)
		}
		return nil
	})
}

// Delete removes a product and its items, queueing the document for removal.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("product", id)
		}

		if _, err := tx.Exec(ctx, enqueueProductSQL, id); err != nil {
			return fmt.Errorf("enqueue product: %w", err)
		}
		return nil
	})
}

// SlugExists reports whether a product already uses slug.
func (r *ProductRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1)`, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product slug: %w", err)
	}
	return exists, nil
}

// ListIDs pages through product ids in ascending order.
func (r *ProductRepository) ListIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if afterID == "" {
		rows, err = r.pool.Query(ctx, `SELECT id FROM products ORDER BY id LIMIT $1`, limit)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT id FROM products WHERE id > $1 ORDER BY id LIMIT $2`, afterID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list product ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product ids: %w", err)
	}
	return ids, nil
}

// LoadGraphs loads products with their manufacturer and items in one query.
// A product whose manufacturer row is missing comes back with a nil
// Manufacturer.
func (r *ProductRepository) LoadGraphs(ctx context.Context, ids []string) ([]domain.ProductDetail, error) {
	if len(ids) == 0 {
		return []domain.ProductDetail{}, nil
	}

	query := `
		SELECT p.id, p.manufacturer_id, p.name, p.slug, p.ean, p.description, p.created_at, p.updated_at,
		       m.id, m.name, m.slug, m.created_at, m.updated_at,
		       i.id, i.distributor_id, i.price::text, i.sku, i.available, i.created_at, i.updated_at,
		       d.id, d.name, d.slug, d.created_at, d.updated_at
		FROM products p
		LEFT JOIN manufacturers m ON m.id = p.manufacturer_id
		LEFT JOIN items i ON i.product_id = p.id
		LEFT JOIN distributors d ON d.id = i.distributor_id
		WHERE p.id = ANY($1)
		ORDER BY p.id, i.created_at, i.id`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("load product graphs: %w", err)
	}
	defer rows.Close()

	var (
		out   []domain.ProductDetail
		index = make(map[string]int)
	)
	for rows.Next() {
		var (
			p                               domain.Product
			mID, mName, mSlug               *string
			mCreated, mUpdated              *time.Time
			iID, iDistributor, iPrice, iSKU *string
			iAvailable                      *bool
			iCreated, iUpdated              *time.Time
			dID, dName, dSlug               *string
			dCreated, dUpdated              *time.Time
		)
		if err := rows.Scan(
			&p.ID, &p.ManufacturerID, &p.Name, &p.Slug, &p.EAN, &p.Description, &p.CreatedAt, &p.UpdatedAt,
			&mID, &mName, &mSlug, &mCreated, &mUpdated,
			&iID, &iDistributor, &iPrice, &iSKU, &iAvailable, &iCreated, &iUpdated,
			&dID, &dName, &dSlug, &dCreated, &dUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan product graph row: %w", err)
		}

		pos, ok := index[p.ID]
		if !ok {
			detail := domain.ProductDetail{Product: p, Items: []domain.ItemDetail{}}
			if mID != nil {
				detail.Manufacturer = &domain.Manufacturer{
					ID: *mID, Name: deref(mName), Slug: deref(mSlug),
					CreatedAt: derefTime(mCreated), UpdatedAt: derefTime(mUpdated),
				}
			}
			out = append(out, detail)
			pos = len(out) - 1
			index[p.ID] = pos
		}

		if iID == nil {
			continue
		}
		price, err := decimal.NewFromString(deref(iPrice))
		if err != nil {
			return nil, fmt.Errorf("parse price of item %s: %w", *iID, err)
		}
		item := domain.ItemDetail{Item: domain.Item{
			ID:            *iID,
			ProductID:     p.ID,
			DistributorID: deref(iDistributor),
			Price:         price,
			SKU:           deref(iSKU),
			Available:     iAvailable != nil && *iAvailable,
			CreatedAt:     derefTime(iCreated),
			UpdatedAt:     derefTime(iUpdated),
		}}
		if dID != nil {
			item.Distributor = &domain.Distributor{
				ID: *dID, Name: deref(dName), Slug: deref(dSlug),
				CreatedAt: derefTime(dCreated), UpdatedAt: derefTime(dUpdated),
			}
		}
		out[pos].Items = append(out[pos].Items, item)
		out[pos].ItemsCount = len(out[pos].Items)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product graph rows: %w", err)
	}

	if out == nil {
		out = []domain.ProductDetail{}
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
