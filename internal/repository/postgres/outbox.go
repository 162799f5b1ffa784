package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/pkg/database"
)

// OutboxRepository implements repository.Outbox on the reindex_outbox table.
type OutboxRepository struct {
	pool database.DBTX
}

// NewOutboxRepository creates a new PostgreSQL-backed outbox.
func NewOutboxRepository(pool database.DBTX) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// FetchPending returns up to limit jobs that are neither dispatched, buried
// nor waiting for a retry, oldest first.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]domain.ReindexJob, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, attempts, created_at
		FROM reindex_outbox
		WHERE dispatched_at IS NULL AND failed_at IS NULL AND available_at <= NOW()
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending reindex jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.ReindexJob{}
	for rows.Next() {
		var j domain.ReindexJob
		if err := rows.Scan(&j.ID, &j.ProductID, &j.Attempts, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reindex job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reindex jobs: %w", err)
	}
	return jobs, nil
}

// MarkDispatched stamps the given jobs as delivered.
func (r *OutboxRepository) MarkDispatched(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `UPDATE reindex_outbox SET dispatched_at = NOW() WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("mark reindex jobs dispatched: %w", err)
	}
	return nil
}

// Retry records a failed attempt and delays the job until retryAt.
func (r *OutboxRepository) Retry(ctx context.Context, id int64, retryAt time.Time, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE reindex_outbox
		SET attempts = attempts + 1, available_at = $2, last_error = $3
		WHERE id = $1`, id, retryAt, reason)
	if err != nil {
		return fmt.Errorf("reschedule reindex job %d: %w", id, err)
	}
	return nil
}

// Bury records a final failed attempt. The row is kept with its last error
// for inspection but never fetched again.
func (r *OutboxRepository) Bury(ctx context.Context, id int64, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE reindex_outbox
		SET attempts = attempts + 1, failed_at = NOW(), last_error = $2
		WHERE id = $1`, id, reason)
	if err != nil {
		return fmt.Errorf("bury reindex job %d: %w", id, err)
	}
	return nil
}

// Enqueue records one job per product id.
func (r *OutboxRepository) Enqueue(ctx context.Context, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO reindex_outbox (product_id) SELECT unnest($1::uuid[])`, productIDs)
	if err != nil {
		return fmt.Errorf("enqueue reindex jobs: %w", err)
	}
	return nil
}
