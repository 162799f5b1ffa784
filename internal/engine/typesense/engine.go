package typesense

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/engine"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
	"github.com/utafrali/CatalogGo/pkg/httpclient"
)

const apiKeyHeader = "X-TYPESENSE-API-KEY"

// Config holds the Typesense connection settings.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
	MaxRetries int
}

// Engine is a Typesense-backed implementation of the SearchEngine interface,
// talking to the REST API through a circuit-breaking HTTP client.
type Engine struct {
	client     *httpclient.CircuitBreakerClient
	collection string
	logger     *slog.Logger
}

var _ engine.SearchEngine = (*Engine)(nil)

type searchResponse struct {
	Found int `json:"found"`
	Hits  []struct {
		Document domain.SearchDocument `json:"document"`
	} `json:"hits"`
	FacetCounts []engine.RawFacetCount `json:"facet_counts"`
}

type importResult struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	Document string `json:"document"`
}

// New creates a Typesense engine and ensures the collection exists.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Engine, error) {
	e := NewWithClient(newClient(cfg, logger), cfg.Collection, logger)
	if err := e.ensureCollection(ctx); err != nil {
		return nil, fmt.Errorf("typesense: ensure collection: %w", err)
	}
	return e, nil
}

// NewWithClient builds an engine around an existing client without touching
// the collection.
func NewWithClient(client *httpclient.CircuitBreakerClient, collection string, logger *slog.Logger) *Engine {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Engine{client: client, collection: collection, logger: logger}
}

func newClient(cfg Config, logger *slog.Logger) *httpclient.CircuitBreakerClient {
	httpCfg := httpclient.DefaultConfig()
	httpCfg.BaseURL = cfg.URL
	httpCfg.Header = http.Header{apiKeyHeader: []string{cfg.APIKey}}
	if cfg.Timeout > 0 {
		httpCfg.Timeout = cfg.Timeout
	}
	httpCfg.MaxRetries = cfg.MaxRetries
	httpCfg.RetryWaitMin = 100 * time.Millisecond
	httpCfg.RetryWaitMax = time.Second

	return httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("typesense"),
		logger,
	)
}

func (e *Engine) documentsPath() string {
	return "/collections/" + url.PathEscape(e.collection) + "/documents"
}

func (e *Engine) ensureCollection(ctx context.Context) error {
	err := e.client.DoJSON(ctx, http.MethodGet, "/collections/"+url.PathEscape(e.collection), nil, nil)
	if err == nil {
		e.logger.Info("typesense collection already exists", slog.String("collection", e.collection))
		return nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	if err := e.client.DoJSON(ctx, http.MethodPost, "/collections", buildSchema(e.collection), nil); err != nil {
		// Another replica may have created it first.
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil
		}
		return err
	}
	e.logger.Info("typesense collection created", slog.String("collection", e.collection))
	return nil
}

// Ping checks the Typesense health endpoint.
func (e *Engine) Ping(ctx context.Context) error {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := e.client.DoJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return fmt.Errorf("typesense ping: %w", err)
	}
	if !out.OK {
		return errors.New("typesense ping: node not ok")
	}
	return nil
}

// Upsert adds or replaces a single document.
func (e *Engine) Upsert(ctx context.Context, doc *domain.SearchDocument) error {
	if err := e.client.DoJSON(ctx, http.MethodPost, e.documentsPath()+"?action=upsert", withSets(*doc), nil); err != nil {
		return fmt.Errorf("typesense upsert %s: %w", doc.ID, err)
	}
	e.logger.DebugContext(ctx, "indexed document", slog.String("id", doc.ID))
	return nil
}

// BulkUpsert imports documents as JSONL and reports per-document failures.
func (e *Engine) BulkUpsert(ctx context.Context, docs []domain.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range docs {
		if err := enc.Encode(withSets(docs[i])); err != nil {
			return fmt.Errorf("typesense import: encode %s: %w", docs[i].ID, err)
		}
	}

	resp, err := e.client.Post(ctx, e.documentsPath()+"/import?action=upsert", "text/plain", &buf)
	if err != nil {
		return fmt.Errorf("typesense import: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("typesense import: %w", httpclient.ParseResponseError(resp, "typesense"))
	}
	defer func() { _ = resp.Body.Close() }()

	var failures []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var r importResult
		if err := json.Unmarshal(line, &r); err != nil {
			return fmt.Errorf("typesense import: decode result: %w", err)
		}
		if !r.Success {
			failures = append(failures, r.Error)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("typesense import: read results: %w", err)
	}
	if len(failures) > 0 {
		return fmt.Errorf("typesense import: %d of %d documents failed: %s", len(failures), len(docs), strings.Join(failures, "; "))
	}

	e.logger.InfoContext(ctx, "bulk indexed documents", slog.Int("count", len(docs)))
	return nil
}

// Delete removes a document. A missing document is not an error.
func (e *Engine) Delete(ctx context.Context, id string) error {
	err := e.client.DoJSON(ctx, http.MethodDelete, e.documentsPath()+"/"+url.PathEscape(id), nil, nil)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("typesense delete %s: %w", id, err)
	}
	return nil
}

// Search runs a query. Text, filter and facet fields are passed through.
func (e *Engine) Search(ctx context.Context, req *engine.SearchRequest) (*engine.SearchResponse, error) {
	var out searchResponse
	if err := e.client.DoJSON(ctx, http.MethodGet, e.documentsPath()+"/search?"+searchParams(req).Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("typesense search: %w", err)
	}

	hits := make([]domain.SearchDocument, 0, len(out.Hits))
	for _, h := range out.Hits {
		hits = append(hits, h.Document)
	}
	return &engine.SearchResponse{
		Hits:        hits,
		Found:       out.Found,
		FacetCounts: out.FacetCounts,
	}, nil
}

func searchParams(req *engine.SearchRequest) url.Values {
	q := strings.TrimSpace(req.Text)
	if req.IsMatchAll() {
		q = engine.MatchAll
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	perPage := req.PerPage
	if perPage < 0 {
		perPage = 0
	}

	v := url.Values{}
	v.Set("q", q)
	v.Set("query_by", strings.Join(queryBy, ","))
	v.Set("sort_by", sortBy)
	v.Set("page", strconv.Itoa(page))
	v.Set("per_page", strconv.Itoa(perPage))
	if req.FilterBy != "" {
		v.Set("filter_by", req.FilterBy)
	}
	if len(req.FacetBy) > 0 {
		v.Set("facet_by", strings.Join(req.FacetBy, ","))
		if req.MaxFacetValues > 0 {
			v.Set("max_facet_values", strconv.Itoa(req.MaxFacetValues))
		}
	}
	return v
}

// withSets guarantees array fields are sent as [] rather than null.
func withSets(d domain.SearchDocument) domain.SearchDocument {
	if d.DistributorNames == nil {
		d.DistributorNames = []string{}
	}
	if d.SKUs == nil {
		d.SKUs = []string{}
	}
	return d
}
