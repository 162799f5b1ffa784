package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/utafrali/CatalogGo/pkg/httputil"
)

// Reindexer rebuilds the whole search index from the store.
type Reindexer interface {
	ReindexAll(ctx context.Context, batchSize int) (int, error)
}

// ReindexHandler starts full reindex runs in the background, one at a time.
// Runs are cancelled with the base context given at construction.
type ReindexHandler struct {
	base      context.Context
	reindexer Reindexer
	batchSize int
	running   atomic.Bool
	// done is signalled after each run, for tests.
	done   chan struct{}
	logger *slog.Logger
}

// NewReindexHandler creates a new reindex HTTP handler. Background runs stop
// when ctx is cancelled.
func NewReindexHandler(ctx context.Context, reindexer Reindexer, batchSize int, logger *slog.Logger) *ReindexHandler {
	return &ReindexHandler{
		base:      ctx,
		reindexer: reindexer,
		batchSize: batchSize,
		done:      make(chan struct{}, 1),
		logger:    logger,
	}
}

// Reindex handles POST /api/v1/admin/reindex
func (h *ReindexHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	if !h.running.CompareAndSwap(false, true) {
		httputil.WriteJSON(w, http.StatusConflict, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "REINDEX_RUNNING", Message: "a reindex is already running"},
		})
		return
	}

	// The run outlives the request but keeps its trace and correlation id.
	ctx := detach(h.base, r.Context())
	go func() {
		defer func() {
			h.running.Store(false)
			select {
			case h.done <- struct{}{}:
			default:
			}
		}()

		start := time.Now()
		n, err := h.reindexer.ReindexAll(ctx, h.batchSize)
		if err != nil {
			h.logger.ErrorContext(ctx, "background reindex failed",
				slog.Int("indexed", n),
				slog.String("error", err.Error()),
			)
			return
		}
		h.logger.InfoContext(ctx, "background reindex finished",
			slog.Int("indexed", n),
			slog.Duration("took", time.Since(start)),
		)
	}()

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: map[string]string{"status": "reindex started"}})
}

// requestValues carries the lifetime of one context and the values of another.
type requestValues struct {
	context.Context
	values context.Context
}

func (c requestValues) Value(key any) any {
	if v := c.values.Value(key); v != nil {
		return v
	}
	return c.Context.Value(key)
}

// detach returns a context cancelled with base that still resolves the
// request's values.
func detach(base, req context.Context) context.Context {
	return requestValues{Context: base, values: context.WithoutCancel(req)}
}
