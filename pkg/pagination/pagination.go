package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	// MaxPage bounds page numbers so offsets stay small and cannot overflow.
	MaxPage = 10000
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest extracts pagination parameters from an HTTP request.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	p.Page = PageFromString(r.URL.Query().Get("page"))

	if perPage := r.URL.Query().Get("per_page"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= MaxPerPage {
			p.PerPage = v
		}
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// PageFromString parses a 1-based page number. Anything unparsable or below 1
// yields page 1; pages past MaxPage are clamped to it.
func PageFromString(s string) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return ClampPage(v)
	}
	return 1
}

// ClampPage bounds page to [1, MaxPage].
func ClampPage(page int) int {
	return min(max(page, 1), MaxPage)
}

// Meta describes one page of a larger result set.
type Meta struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewMeta computes page metadata for total records split into perPage-sized pages.
func NewMeta(total, page, perPage int) Meta {
	totalPages := 0
	if perPage > 0 {
		totalPages = total / perPage
		if total%perPage > 0 {
			totalPages++
		}
	}
	return Meta{
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data []T `json:"data"`
	Meta
}

// NewResult creates a paginated result.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	if data == nil {
		data = []T{}
	}
	return Result[T]{Data: data, Meta: NewMeta(totalCount, params.Page, params.PerPage)}
}
