package engine

import (
	"context"
	"encoding/json"

	"github.com/utafrali/CatalogGo/internal/domain"
)

// SearchEngine defines the interface for indexing and querying product
// documents. Implementations may use Typesense, Elasticsearch, or memory.
type SearchEngine interface {
	// Upsert adds or replaces a single document.
	Upsert(ctx context.Context, doc *domain.SearchDocument) error

	// BulkUpsert adds or replaces many documents.
	BulkUpsert(ctx context.Context, docs []domain.SearchDocument) error

	// Delete removes a document. Deleting an absent document is not an error.
	Delete(ctx context.Context, id string) error

	// Search runs a text query with an optional filter and facet request.
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// MatchAll is the query text that matches every document.
const MatchAll = "*"

// SearchRequest is a single engine query. FilterBy uses the filter package
// syntax. PerPage 0 returns facet counts only.
type SearchRequest struct {
	Text           string
	FilterBy       string
	FacetBy        []string
	MaxFacetValues int
	Page           int
	PerPage        int
}

// IsMatchAll reports whether the request text matches everything.
func (r *SearchRequest) IsMatchAll() bool {
	return IsMatchAll(r.Text)
}

// IsMatchAll reports whether text is blank or the match-all token.
func IsMatchAll(text string) bool {
	for _, c := range text {
		if c != ' ' && c != '\t' && c != '\n' && c != '*' {
			return false
		}
	}
	return true
}

// SearchResponse carries ordered hits, the total match count and raw facet
// counts exactly as the backend reported them.
type SearchResponse struct {
	Hits        []domain.SearchDocument
	Found       int
	FacetCounts []RawFacetCount
}

// RawFacetCount is one facet_counts entry before normalization.
type RawFacetCount struct {
	FieldName string          `json:"field_name"`
	Counts    []RawFacetValue `json:"counts"`
}

// RawFacetValue keeps Count undecoded so malformed entries can be skipped
// individually instead of failing the whole response.
type RawFacetValue struct {
	Value *string         `json:"value"`
	Count json.RawMessage `json:"count"`
}
