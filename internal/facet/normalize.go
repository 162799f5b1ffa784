package facet

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/engine"
)

// Normalize turns raw facet_counts into ordered value/count lists per field.
// Entries without a field name, without a value, or with a count that is not
// a non-negative integer are skipped one by one. A value reported twice keeps
// its first position and takes the later count. Each field is then sorted by
// count descending, stable on first appearance.
func Normalize(raw []engine.RawFacetCount) domain.Facets {
	out := make(domain.Facets)
	positions := make(map[string]map[string]int)

	for _, entry := range raw {
		if entry.FieldName == "" {
			continue
		}
		pos, ok := positions[entry.FieldName]
		if !ok {
			pos = make(map[string]int)
			positions[entry.FieldName] = pos
			out[entry.FieldName] = []domain.FacetValue{}
		}

		for _, c := range entry.Counts {
			if c.Value == nil {
				continue
			}
			count, ok := parseCount(c.Count)
			if !ok {
				continue
			}
			if i, seen := pos[*c.Value]; seen {
				out[entry.FieldName][i].Count = count
				continue
			}
			pos[*c.Value] = len(out[entry.FieldName])
			out[entry.FieldName] = append(out[entry.FieldName], domain.FacetValue{Value: *c.Value, Count: count})
		}
	}

	for field := range out {
		slices.SortStableFunc(out[field], func(a, b domain.FacetValue) int { return b.Count - a.Count })
	}
	return out
}

func parseCount(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// empty returns facets with an empty list for every field.
func empty(fields []string) domain.Facets {
	out := make(domain.Facets, len(fields))
	for _, f := range fields {
		out[f] = []domain.FacetValue{}
	}
	return out
}
