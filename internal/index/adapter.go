// Package index keeps the search engine in step with the catalog store and
// turns engine hits back into product graphs.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/engine"
	"github.com/utafrali/CatalogGo/internal/repository"
	"github.com/utafrali/CatalogGo/pkg/tracing"
)

const tracerName = "catalog/index"

// DefaultBatchSize is the number of products reindexed per round trip.
const DefaultBatchSize = 100

// IDLister pages through every product id in ascending order.
type IDLister interface {
	ListIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

// QueryParams describes one search against the index.
type QueryParams struct {
	Text           string
	FilterBy       string
	FacetBy        []string
	MaxFacetValues int
	PerPage        int
	Page           int
}

// QueryResult holds hydrated hits in engine order.
type QueryResult struct {
	Hits        []domain.ProductDetail
	Total       int
	FacetCounts []engine.RawFacetCount
}

// Adapter indexes product graphs and queries the search engine.
type Adapter struct {
	engine engine.SearchEngine
	graphs repository.GraphLoader
	ids    IDLister
	logger *slog.Logger
}

// NewAdapter creates a new index adapter.
func NewAdapter(eng engine.SearchEngine, graphs repository.GraphLoader, ids IDLister, logger *slog.Logger) *Adapter {
	return &Adapter{
		engine: eng,
		graphs: graphs,
		ids:    ids,
		logger: logger,
	}
}

// IndexDocument derives the product's document and upserts it.
func (a *Adapter) IndexDocument(ctx context.Context, detail *domain.ProductDetail) error {
	doc, err := BuildDocument(detail)
	if err != nil {
		observe("index", err)
		return fmt.Errorf("build document for product %s: %w", detail.ID, err)
	}

	err = a.engine.Upsert(ctx, doc)
	observe("index", err)
	if err != nil {
		return fmt.Errorf("index product %s: %w", detail.ID, err)
	}

	a.logger.DebugContext(ctx, "product indexed",
		slog.String("product_id", detail.ID),
		slog.Int("distributors", len(doc.DistributorNames)),
	)
	return nil
}

// RemoveDocument deletes the product's document. Removing an absent
// document succeeds.
func (a *Adapter) RemoveDocument(ctx context.Context, productID string) error {
	err := a.engine.Delete(ctx, productID)
	observe("remove", err)
	if err != nil {
		return fmt.Errorf("remove product %s: %w", productID, err)
	}

	a.logger.DebugContext(ctx, "product removed from index", slog.String("product_id", productID))
	return nil
}

// Sync brings one product's document in line with the store, removing it
// when the product no longer exists.
func (a *Adapter) Sync(ctx context.Context, productID string) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "index.Sync", attribute.String("product.id", productID))
	defer span.End()

	graphs, err := a.graphs.LoadGraphs(ctx, []string{productID})
	if err != nil {
		return tracing.RecordError(span, fmt.Errorf("load product %s: %w", productID, err))
	}
	if len(graphs) == 0 {
		return tracing.RecordError(span, a.RemoveDocument(ctx, productID))
	}
	return tracing.RecordError(span, a.IndexDocument(ctx, &graphs[0]))
}

// RawQuery runs the search without hydrating hits.
func (a *Adapter) RawQuery(ctx context.Context, p QueryParams) (*engine.SearchResponse, error) {
	text := p.Text
	if engine.IsMatchAll(text) {
		text = engine.MatchAll
	}

	resp, err := a.engine.Search(ctx, &engine.SearchRequest{
		Text:           text,
		FilterBy:       p.FilterBy,
		FacetBy:        p.FacetBy,
		MaxFacetValues: p.MaxFacetValues,
		Page:           p.Page,
		PerPage:        p.PerPage,
	})
	observe("query", err)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return resp, nil
}

// Query runs the search and loads every hit's product graph in one batch.
// Hits whose product has vanished from the store are dropped.
func (a *Adapter) Query(ctx context.Context, p QueryParams) (*QueryResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "index.Query",
		attribute.String("search.text", p.Text),
		attribute.String("search.filter_by", p.FilterBy),
		attribute.Int("search.page", p.Page),
	)
	defer span.End()

	resp, err := a.RawQuery(ctx, p)
	if err != nil {
		return nil, tracing.RecordError(span, err)
	}

	hits, err := a.hydrate(ctx, resp.Hits)
	if err != nil {
		return nil, tracing.RecordError(span, err)
	}

	span.SetAttributes(attribute.Int("search.found", resp.Found))
	return &QueryResult{
		Hits:        hits,
		Total:       resp.Found,
		FacetCounts: resp.FacetCounts,
	}, nil
}

func (a *Adapter) hydrate(ctx context.Context, docs []domain.SearchDocument) ([]domain.ProductDetail, error) {
	if len(docs) == 0 {
		return []domain.ProductDetail{}, nil
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	graphs, err := a.graphs.LoadGraphs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load hit products: %w", err)
	}

	byID := make(map[string]domain.ProductDetail, len(graphs))
	for _, g := range graphs {
		byID[g.ID] = g
	}

	out := make([]domain.ProductDetail, 0, len(ids))
	for _, id := range ids {
		g, ok := byID[id]
		if !ok {
			a.logger.WarnContext(ctx, "search hit no longer in store", slog.String("product_id", id))
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

// ReindexAll rebuilds every product document in batches of batchSize and
// returns the number of documents written. Products that cannot be indexed
// are logged and skipped.
func (a *Adapter) ReindexAll(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var (
		after   string
		indexed int
	)
	for {
		ids, err := a.ids.ListIDs(ctx, after, batchSize)
		if err != nil {
			return indexed, fmt.Errorf("list products after %q: %w", after, err)
		}
		if len(ids) == 0 {
			break
		}

		graphs, err := a.graphs.LoadGraphs(ctx, ids)
		if err != nil {
			return indexed, fmt.Errorf("load product batch: %w", err)
		}

		docs := make([]domain.SearchDocument, 0, len(graphs))
		for i := range graphs {
			doc, err := BuildDocument(&graphs[i])
			if err != nil {
				var missing *domain.MissingRelationError
				if errors.As(err, &missing) {
					a.logger.WarnContext(ctx, "skipping product during reindex",
						slog.String("product_id", graphs[i].ID),
						slog.String("error", err.Error()),
					)
					continue
				}
				return indexed, err
			}
			docs = append(docs, *doc)
		}

		if len(docs) > 0 {
			err := a.engine.BulkUpsert(ctx, docs)
			observe("bulk_index", err)
			if err != nil {
				return indexed, fmt.Errorf("bulk index: %w", err)
			}
		}
		indexed += len(docs)
		after = ids[len(ids)-1]

		if len(ids) < batchSize {
			break
		}
	}

	a.logger.InfoContext(ctx, "reindex completed", slog.Int("documents", indexed))
	return indexed, nil
}

// Ping reports whether the search engine is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.engine.Ping(ctx)
}
