package memory

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/utafrali/CatalogGo/internal/domain"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// OutboxRepository implements repository.Outbox in memory.
type OutboxRepository struct {
	db *DB
}

func (r *OutboxRepository) FetchPending(_ context.Context, limit int) ([]domain.ReindexJob, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	now := r.db.now()
	jobs := []domain.ReindexJob{}
	for _, row := range r.db.outbox {
		if row.dispatched || row.buried || row.availableAt.After(now) {
			continue
		}
		jobs = append(jobs, row.job)
		if limit > 0 && len(jobs) == limit {
			break
		}
	}
	return jobs, nil
}

// MarkDispatched flags the jobs and compacts dispatched rows away.
func (r *OutboxRepository) MarkDispatched(_ context.Context, ids []int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i := range r.db.outbox {
		if slices.Contains(ids, r.db.outbox[i].job.ID) {
			r.db.outbox[i].dispatched = true
		}
	}
	r.db.outbox = slices.DeleteFunc(r.db.outbox, func(row outboxRow) bool { return row.dispatched })
	return nil
}

func (r *OutboxRepository) Retry(_ context.Context, id int64, retryAt time.Time, reason string) error {
	return r.update(id, func(row *outboxRow) {
		row.job.Attempts++
		row.availableAt = retryAt
		row.lastError = reason
	})
}

// Bury keeps the row, like the SQL store does, but never returns it again.
func (r *OutboxRepository) Bury(_ context.Context, id int64, reason string) error {
	return r.update(id, func(row *outboxRow) {
		row.job.Attempts++
		row.buried = true
		row.lastError = reason
	})
}

func (r *OutboxRepository) update(id int64, fn func(*outboxRow)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i := range r.db.outbox {
		if r.db.outbox[i].job.ID == id {
			fn(&r.db.outbox[i])
			return nil
		}
	}
	return apperrors.NotFound("reindex job", strconv.FormatInt(id, 10))
}

func (r *OutboxRepository) Enqueue(_ context.Context, productIDs []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.enqueue(productIDs...)
	return nil
}
