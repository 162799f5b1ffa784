package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/CatalogGo/internal/repository"
	"github.com/utafrali/CatalogGo/pkg/database"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

const defaultPerPage = 20

// Outbox statements run inside the mutating transaction.
const (
	enqueueProductSQL      = `INSERT INTO reindex_outbox (product_id) VALUES ($1)`
	enqueueManufacturerSQL = `INSERT INTO reindex_outbox (product_id) SELECT id FROM products WHERE manufacturer_id = $1`
	enqueueDistributorSQL  = `INSERT INTO reindex_outbox (product_id) SELECT DISTINCT product_id FROM items WHERE distributor_id = $1`
	enqueueItemSQL         = `INSERT INTO reindex_outbox (product_id) SELECT product_id FROM items WHERE id = $1`
)

// NewStore builds every repository on top of db.
func NewStore(db database.DBTX) repository.Store {
	products := NewProductRepository(db)
	return repository.Store{
		Manufacturers: NewManufacturerRepository(db),
		Distributors:  NewDistributorRepository(db),
		Products:      products,
		Items:         NewItemRepository(db),
		Graphs:        products,
		Outbox:        NewOutboxRepository(db),
	}
}

// inTx runs fn in a transaction that is committed only when fn succeeds.
func inTx(ctx context.Context, db database.DBTX, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// writeError translates constraint violations. values maps a unique column
// to the value that was written so the conflict can name it.
func writeError(err error, resource, table string, values map[string]string) error {
	if constraint, ok := database.UniqueViolation(err); ok {
		field := strings.TrimSuffix(strings.TrimPrefix(constraint, table+"_"), "_key")
		return apperrors.AlreadyExists(resource, field, values[field])
	}
	if constraint, ok := database.ForeignKeyViolation(err); ok {
		relation := strings.TrimSuffix(strings.TrimPrefix(constraint, table+"_"), "_id_fkey")
		return apperrors.MissingRelation(fmt.Sprintf("%s references a %s that does not exist", resource, relation))
	}
	return err
}

func limitOffset(p repository.ListParams) (int, int) {
	limit := p.PerPage
	if limit <= 0 {
		limit = defaultPerPage
	}
	p.PerPage = limit
	return limit, p.Offset()
}
