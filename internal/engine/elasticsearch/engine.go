package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/engine"
	"github.com/utafrali/CatalogGo/internal/filter"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// Engine stores search documents in one Elasticsearch index.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

var _ engine.SearchEngine = (*Engine)(nil)

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source domain.SearchDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Buckets []esBucket `json:"buckets"`
	} `json:"aggregations"`
}

type esBucket struct {
	Key      string `json:"key"`
	DocCount int    `json:"doc_count"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an Elasticsearch engine and ensures the index exists.
func New(esURL, indexName string, logger *slog.Logger) (*Engine, error) {
	return NewWithTransport(esURL, indexName, nil, logger)
}

// NewWithTransport is New with a custom HTTP transport; nil uses the default.
func NewWithTransport(esURL, indexName string, transport http.RoundTripper, logger *slog.Logger) (*Engine, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	e := &Engine{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}
	if err := e.ensureIndex(); err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to ensure index: %w", err)
	}
	return e, nil
}

// Ping checks whether the cluster answers.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	return e.result("ping", res, err, nil)
}

// result closes res and turns a failed call into an error. A successful body
// is decoded into out when out is non-nil.
func (e *Engine) result(op string, res *esapi.Response, err error, out any) error {
	if err != nil {
		return apperrors.ServiceUnavailable("elasticsearch "+op+" failed", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError(op, res.StatusCode, res.Body)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("elasticsearch %s: decode response: %w", op, err)
	}
	return nil
}

func (e *Engine) ensureIndex() error {
	res, err := e.client.Indices.Exists([]string{e.indexName})
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		e.logger.Info("elasticsearch index already exists", slog.String("index", e.indexName))
		return nil
	}

	res, err = e.client.Indices.Create(e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
	)
	if err := e.result("create index", res, err, nil); err != nil {
		return err
	}
	e.logger.Info("elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// responseError keeps the bad-request and server-error meaning of status.
func responseError(op string, status int, body io.Reader) error {
	var errResp esErrorResponse
	msg := "unexpected status " + strconv.Itoa(status)
	if json.NewDecoder(body).Decode(&errResp) == nil && errResp.Error.Type != "" {
		msg = errResp.Error.Type + ": " + errResp.Error.Reason
	}

	switch {
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(fmt.Sprintf("elasticsearch %s: %s", op, msg))
	case status >= 500:
		return apperrors.ServiceUnavailable("elasticsearch "+op+" failed", errors.New(msg))
	default:
		return fmt.Errorf("elasticsearch %s: %s", op, msg)
	}
}

// Upsert indexes one document under its product id.
func (e *Engine) Upsert(ctx context.Context, doc *domain.SearchDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal document: %w", err)
	}

	res, err := e.client.Index(e.indexName, bytes.NewReader(data),
		e.client.Index.WithDocumentID(doc.ID),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err := e.result("index", res, err, nil); err != nil {
		return err
	}
	e.logger.DebugContext(ctx, "indexed document", slog.String("id", doc.ID))
	return nil
}

// Delete removes a document. Deleting an unknown id is not an error.
func (e *Engine) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(e.indexName, id,
		e.client.Delete.WithRefresh("true"),
		e.client.Delete.WithContext(ctx),
	)
	if err == nil && res.StatusCode == http.StatusNotFound {
		_ = res.Body.Close()
		return nil
	}
	return e.result("delete", res, err, nil)
}

// Search runs req as a bool query with one terms aggregation per facet field.
func (e *Engine) Search(ctx context.Context, req *engine.SearchRequest) (*engine.SearchResponse, error) {
	expr, err := filter.Parse(req.FilterBy)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	data, err := json.Marshal(buildSearchQuery(req, expr))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	var out esSearchResponse
	if err := e.result("search", res, err, &out); err != nil {
		return nil, err
	}

	resp := &engine.SearchResponse{
		Hits:        make([]domain.SearchDocument, 0, len(out.Hits.Hits)),
		Found:       out.Hits.Total.Value,
		FacetCounts: make([]engine.RawFacetCount, 0, len(req.FacetBy)),
	}
	for _, h := range out.Hits.Hits {
		resp.Hits = append(resp.Hits, h.Source)
	}
	for _, field := range req.FacetBy {
		if agg, ok := out.Aggregations[field]; ok {
			resp.FacetCounts = append(resp.FacetCounts, bucketCounts(field, agg.Buckets))
		}
	}
	return resp, nil
}

func bucketCounts(field string, buckets []esBucket) engine.RawFacetCount {
	fc := engine.RawFacetCount{FieldName: field, Counts: make([]engine.RawFacetValue, 0, len(buckets))}
	for _, b := range buckets {
		key := b.Key
		fc.Counts = append(fc.Counts, engine.RawFacetValue{
			Value: &key,
			Count: []byte(strconv.Itoa(b.DocCount)),
		})
	}
	return fc
}

// BulkUpsert writes docs with one bulk NDJSON request. Per-item failures are
// collected into a single error.
func (e *Engine) BulkUpsert(ctx context.Context, docs []domain.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range docs {
		action := map[string]map[string]string{"index": {"_index": e.indexName, "_id": docs[i].ID}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := enc.Encode(&docs[i]); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(&buf,
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	var out esBulkResponse
	if err := e.result("bulk index", res, err, &out); err != nil {
		return err
	}

	if out.Errors {
		var failed []string
		for _, item := range out.Items {
			if item.Index.Error.Type != "" {
				failed = append(failed, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk index: partial errors: %s", strings.Join(failed, "; "))
	}

	e.logger.InfoContext(ctx, "bulk indexed documents", slog.Int("count", len(docs)))
	return nil
}
