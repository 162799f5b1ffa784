// Package outbox moves pending reindex jobs from the store to a dispatcher.
// Delivery is at least once: rows are marked dispatched only after the
// dispatcher accepted them, so a crash in between redelivers them.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/event"
	"github.com/utafrali/CatalogGo/internal/repository"
)

const (
	DefaultPollInterval = time.Second
	DefaultBatchSize    = 100
	DefaultMaxAttempts  = 5
	DefaultMaxBackoff   = 5 * time.Minute
)

var (
	relayedJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_outbox_jobs_total",
			Help: "Reindex jobs taken from the outbox, by result",
		},
		[]string{"status"},
	)

	pendingJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_outbox_last_batch_size",
		Help: "Number of jobs fetched by the most recent relay pass",
	})
)

// Dispatcher hands jobs to whatever performs the reindexing.
//
// An error that is not a JobErrors fails the whole batch: every job stays
// pending and no attempt is counted. Returning JobErrors means every job not
// named in it was delivered.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobs []domain.ReindexJob) error
}

// JobErrors maps job ids to the reason they could not be delivered.
type JobErrors map[int64]error

func (e JobErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, id := range slices.Sorted(maps.Keys(e)) {
		msgs = append(msgs, fmt.Sprintf("job %d: %v", id, e[id]))
	}
	return strings.Join(msgs, "; ")
}

// Relay polls the outbox and dispatches pending jobs.
type Relay struct {
	outbox      repository.Outbox
	dispatcher  Dispatcher
	interval    time.Duration
	batchSize   int
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

// WithMaxAttempts sets how many failed deliveries a job gets before it is
// buried.
func WithMaxAttempts(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithRetryBackoff sets the delay after the first failure and its ceiling.
// The delay doubles with every further failure.
func WithRetryBackoff(base, ceiling time.Duration) Option {
	return func(r *Relay) {
		r.baseBackoff = max(base, 0)
		r.maxBackoff = max(ceiling, 0)
	}
}

// NewRelay creates a relay. Non-positive interval and batchSize fall back to
// the defaults. Failed jobs are retried after the poll interval by default.
func NewRelay(outbox repository.Outbox, dispatcher Dispatcher, interval time.Duration, batchSize int, logger *slog.Logger, opts ...Option) *Relay {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	r := &Relay{
		outbox:      outbox,
		dispatcher:  dispatcher,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: DefaultMaxAttempts,
		baseBackoff: interval,
		maxBackoff:  DefaultMaxBackoff,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled. A full batch is followed immediately by
// another pass instead of waiting for the next tick.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "outbox relay started",
		slog.Duration("interval", r.interval),
		slog.Int("batch_size", r.batchSize),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		n, err := r.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "outbox relay pass failed", slog.String("error", err.Error()))
		}
		if n == r.batchSize && ctx.Err() == nil {
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce dispatches one batch of pending jobs and returns how many were
// dispatched. Jobs the dispatcher rejected individually are rescheduled with
// backoff, or buried once they used up their attempts, so they never hold
// back the rest of the batch.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	jobs, err := r.outbox.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch pending jobs: %w", err)
	}
	pendingJobs.Set(float64(len(jobs)))
	if len(jobs) == 0 {
		return 0, nil
	}

	var failed JobErrors
	if err := r.dispatcher.Dispatch(ctx, jobs); err != nil && !errors.As(err, &failed) {
		relayedJobs.WithLabelValues("error").Add(float64(len(jobs)))
		return 0, fmt.Errorf("dispatch %d jobs: %w", len(jobs), err)
	}

	ids := make([]int64, 0, len(jobs))
	for _, j := range jobs {
		if _, ok := failed[j.ID]; !ok {
			ids = append(ids, j.ID)
		}
	}
	if len(ids) > 0 {
		if err := r.outbox.MarkDispatched(ctx, ids); err != nil {
			return 0, fmt.Errorf("mark jobs dispatched: %w", err)
		}
		relayedJobs.WithLabelValues("dispatched").Add(float64(len(ids)))
	}

	for _, j := range jobs {
		if cause, ok := failed[j.ID]; ok {
			if err := r.reschedule(ctx, j, cause); err != nil {
				return len(ids), err
			}
		}
	}

	r.logger.DebugContext(ctx, "outbox batch relayed",
		slog.Int("dispatched", len(ids)),
		slog.Int("failed", len(jobs)-len(ids)),
	)
	return len(ids), nil
}

func (r *Relay) reschedule(ctx context.Context, job domain.ReindexJob, cause error) error {
	attempt := job.Attempts + 1
	attrs := []any{
		slog.Int64("job_id", job.ID),
		slog.String("product_id", job.ProductID),
		slog.Int("attempt", attempt),
		slog.String("error", cause.Error()),
	}

	if attempt >= r.maxAttempts {
		if err := r.outbox.Bury(ctx, job.ID, cause.Error()); err != nil {
			return fmt.Errorf("bury job %d: %w", job.ID, err)
		}
		relayedJobs.WithLabelValues("dead_lettered").Inc()
		r.logger.ErrorContext(ctx, "reindex job gave up", attrs...)
		return nil
	}

	retryAt := r.now().Add(r.backoff(attempt))
	if err := r.outbox.Retry(ctx, job.ID, retryAt, cause.Error()); err != nil {
		return fmt.Errorf("reschedule job %d: %w", job.ID, err)
	}
	relayedJobs.WithLabelValues("retried").Inc()
	r.logger.WarnContext(ctx, "reindex job failed, will retry", append(attrs, slog.Time("retry_at", retryAt))...)
	return nil
}

func (r *Relay) backoff(attempt int) time.Duration {
	d := r.baseBackoff << min(attempt-1, 30)
	if d < 0 || d > r.maxBackoff {
		return r.maxBackoff
	}
	return d
}

// InlineDispatcher syncs jobs in process, for deployments without Kafka.
type InlineDispatcher struct {
	index  event.Syncer
	logger *slog.Logger
}

// NewInlineDispatcher creates a dispatcher that syncs each job directly.
func NewInlineDispatcher(index event.Syncer, logger *slog.Logger) *InlineDispatcher {
	return &InlineDispatcher{index: index, logger: logger}
}

// Dispatch syncs every distinct product of the batch once. Failures are
// reported per job as JobErrors so the relay can retry only those.
func (d *InlineDispatcher) Dispatch(ctx context.Context, jobs []domain.ReindexJob) error {
	results := make(map[string]error, len(jobs))
	failed := JobErrors{}
	for _, job := range jobs {
		err, ok := results[job.ProductID]
		if !ok {
			if err = event.SyncProduct(ctx, d.index, d.logger, job.ProductID); err != nil {
				err = fmt.Errorf("sync product %s: %w", job.ProductID, err)
			}
			results[job.ProductID] = err
		}
		if err != nil {
			failed[job.ID] = err
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return failed
}
