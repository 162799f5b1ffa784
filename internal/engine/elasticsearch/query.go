package elasticsearch

import (
	"github.com/utafrali/CatalogGo/internal/engine"
	"github.com/utafrali/CatalogGo/internal/filter"
	"github.com/utafrali/CatalogGo/pkg/pagination"
)

var textFields = []string{
	"name^3",
	"name.autocomplete^2",
	"manufacturer_name.text^2",
	"description",
	"slug",
	"ean",
	"skus",
}

// buildSearchQuery translates a request and its parsed filter expression into
// query DSL. Each filter group becomes a should-bool with
// minimum_should_match 1; groups are combined as filter clauses.
func buildSearchQuery(req *engine.SearchRequest, expr filter.Expression) map[string]any {
	var must any
	if req.IsMatchAll() {
		must = map[string]any{"match_all": map[string]any{}}
	} else {
		must = map[string]any{
			"multi_match": map[string]any{
				"query":    req.Text,
				"fields":   textFields,
				"type":     "bool_prefix",
				"operator": "and",
			},
		}
	}

	boolQuery := map[string]any{"must": []any{must}}
	if filters := buildFilters(expr); len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	page := pagination.ClampPage(req.Page)
	perPage := max(req.PerPage, 0)

	q := map[string]any{
		"query":            map[string]any{"bool": boolQuery},
		"from":             (page - 1) * perPage,
		"size":             perPage,
		"track_total_hits": true,
		"sort": []any{
			map[string]any{"_score": "desc"},
			map[string]any{"created_at": "desc"},
			map[string]any{"id": "asc"},
		},
	}

	if aggs := buildAggregations(req.FacetBy, req.MaxFacetValues); len(aggs) > 0 {
		q["aggs"] = aggs
	}
	return q
}

func buildFilters(expr filter.Expression) []any {
	filters := make([]any, 0, len(expr))
	for _, group := range expr {
		if len(group) == 0 {
			continue
		}
		should := make([]any, 0, len(group))
		for _, c := range group {
			should = append(should, clauseQuery(c))
		}
		filters = append(filters, map[string]any{
			"bool": map[string]any{
				"should":               should,
				"minimum_should_match": 1,
			},
		})
	}
	return filters
}

func clauseQuery(c filter.Clause) map[string]any {
	if c.Op == filter.OpContains {
		return map[string]any{
			"term": map[string]any{
				c.Field: map[string]any{"value": c.Value, "case_insensitive": true},
			},
		}
	}
	return map[string]any{"term": map[string]any{c.Field: c.Value}}
}

func buildAggregations(fields []string, size int) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	if size <= 0 {
		size = 10
	}
	aggs := make(map[string]any, len(fields))
	for _, f := range fields {
		aggs[f] = map[string]any{
			"terms": map[string]any{
				"field": f,
				"size":  size,
				"order": []any{
					map[string]any{"_count": "desc"},
					map[string]any{"_key": "asc"},
				},
			},
		}
	}
	return aggs
}
