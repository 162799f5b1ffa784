package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/engine"
	"github.com/utafrali/CatalogGo/internal/filter"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

const defaultMaxFacetValues = 10

// Engine is an in-memory implementation of the SearchEngine interface.
// Text matching is case-insensitive substring matching on every query term;
// there is no relevance scoring, so hits are ordered by created_at desc then id.
type Engine struct {
	mu   sync.RWMutex
	docs map[string]domain.SearchDocument
}

var _ engine.SearchEngine = (*Engine)(nil)

// New creates a new in-memory search engine.
func New() *Engine {
	return &Engine{
		docs: make(map[string]domain.SearchDocument),
	}
}

// Upsert adds or replaces a single document.
func (e *Engine) Upsert(_ context.Context, doc *domain.SearchDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs[doc.ID] = cloneDoc(*doc)
	return nil
}

// BulkUpsert adds or replaces many documents.
func (e *Engine) BulkUpsert(_ context.Context, docs []domain.SearchDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range docs {
		e.docs[docs[i].ID] = cloneDoc(docs[i])
	}
	return nil
}

// Delete removes a document by id.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.docs, id)
	return nil
}

// Ping always succeeds.
func (e *Engine) Ping(context.Context) error { return nil }

// Len returns the number of indexed documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// Search executes a query against the in-memory documents.
func (e *Engine) Search(_ context.Context, req *engine.SearchRequest) (*engine.SearchResponse, error) {
	expr, err := filter.Parse(req.FilterBy)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	terms := strings.Fields(strings.ToLower(req.Text))
	if req.IsMatchAll() {
		terms = nil
	}

	e.mu.RLock()
	matched := make([]domain.SearchDocument, 0, len(e.docs))
	for _, doc := range e.docs {
		ok, err := matches(doc, terms, expr)
		if err != nil {
			e.mu.RUnlock()
			return nil, err
		}
		if ok {
			matched = append(matched, cloneDoc(doc))
		}
	}
	e.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt != matched[j].CreatedAt {
			return matched[i].CreatedAt > matched[j].CreatedAt
		}
		return matched[i].ID < matched[j].ID
	})

	facets, err := facetCounts(matched, req.FacetBy, req.MaxFacetValues)
	if err != nil {
		return nil, err
	}

	return &engine.SearchResponse{
		Hits:        paginate(matched, req.Page, req.PerPage),
		Found:       len(matched),
		FacetCounts: facets,
	}, nil
}

func paginate(docs []domain.SearchDocument, page, perPage int) []domain.SearchDocument {
	if perPage <= 0 {
		return []domain.SearchDocument{}
	}
	if page < 1 {
		page = 1
	}
	if page-1 > len(docs)/perPage {
		return []domain.SearchDocument{}
	}
	offset := min((page-1)*perPage, len(docs))
	end := min(offset+perPage, len(docs))
	return docs[offset:end]
}

func matches(doc domain.SearchDocument, terms []string, expr filter.Expression) (bool, error) {
	if len(terms) > 0 {
		haystack := strings.ToLower(strings.Join([]string{
			doc.Name, doc.Slug, doc.EAN, doc.Description, doc.ManufacturerName, strings.Join(doc.SKUs, " "),
		}, "\n"))
		for _, t := range terms {
			if !strings.Contains(haystack, t) {
				return false, nil
			}
		}
	}

	for _, group := range expr {
		ok := false
		for _, c := range group {
			values, err := fieldValues(doc, c.Field)
			if err != nil {
				return false, err
			}
			if c.Matches(values) {
				ok = true
				break
			}
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func fieldValues(doc domain.SearchDocument, field string) ([]string, error) {
	switch field {
	case "id":
		return []string{doc.ID}, nil
	case "name":
		return []string{doc.Name}, nil
	case "slug":
		return []string{doc.Slug}, nil
	case "ean":
		return []string{doc.EAN}, nil
	case "manufacturer_id":
		return []string{doc.ManufacturerID}, nil
	case domain.FieldManufacturerName:
		return []string{doc.ManufacturerName}, nil
	case "manufacturer_slug":
		return []string{doc.ManufacturerSlug}, nil
	case domain.FieldDistributorNames:
		return doc.DistributorNames, nil
	case "skus":
		return doc.SKUs, nil
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown field %q", field))
	}
}

func facetCounts(docs []domain.SearchDocument, fields []string, limit int) ([]engine.RawFacetCount, error) {
	if limit <= 0 {
		limit = defaultMaxFacetValues
	}

	out := make([]engine.RawFacetCount, 0, len(fields))
	for _, field := range fields {
		counts := map[string]int{}
		for _, doc := range docs {
			values, err := fieldValues(doc, field)
			if err != nil {
				return nil, err
			}
			seen := map[string]bool{}
			for _, v := range values {
				if v == "" || seen[v] {
					continue
				}
				seen[v] = true
				counts[v]++
			}
		}

		values := make([]string, 0, len(counts))
		for v := range counts {
			values = append(values, v)
		}
		sort.Slice(values, func(i, j int) bool {
			if counts[values[i]] != counts[values[j]] {
				return counts[values[i]] > counts[values[j]]
			}
			return values[i] < values[j]
		})
		if len(values) > limit {
			values = values[:limit]
		}

		fc := engine.RawFacetCount{FieldName: field, Counts: make([]engine.RawFacetValue, 0, len(values))}
		for _, v := range values {
			v := v
			fc.Counts = append(fc.Counts, engine.RawFacetValue{
				Value: &v,
				Count: []byte(strconv.Itoa(counts[v])),
			})
		}
		out = append(out, fc)
	}
	return out, nil
}

func cloneDoc(d domain.SearchDocument) domain.SearchDocument {
	d.DistributorNames = append([]string(nil), d.DistributorNames...)
	d.SKUs = append([]string(nil), d.SKUs...)
	return d
}
