package facet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/engine"
)

func val(v string, count string) engine.RawFacetValue {
	return engine.RawFacetValue{Value: &v, Count: json.RawMessage(count)}
}

func TestNormalize_SortsByCountStable(t *testing.T) {
	got := Normalize([]engine.RawFacetCount{{
		FieldName: domain.FieldManufacturerName,
		Counts:    []engine.RawFacetValue{val("Bolt", "2"), val("Acme", "5"), val("Zeta", "2"), val("Core", "3")},
	}})

	assert.Equal(t, []domain.FacetValue{
		{Value: "Acme", Count: 5},
		{Value: "Core", Count: 3},
		{Value: "Bolt", Count: 2},
		{Value: "Zeta", Count: 2},
	}, got[domain.FieldManufacturerName])
}

func TestNormalize_SkipsMalformedEntries(t *testing.T) {
	got := Normalize([]engine.RawFacetCount{
		{FieldName: "", Counts: []engine.RawFacetValue{val("Orphan", "9")}},
		{
			FieldName: domain.FieldDistributorNames,
			Counts: []engine.RawFacetValue{
				{Value: nil, Count: json.RawMessage("4")},
				val("Float", "1.5"),
				val("String", `"3"`),
				val("Null", "null"),
				val("Missing", ""),
				val("Negative", "-1"),
				val("Global", "7"),
			},
		},
	})

	assert.Len(t, got, 1)
	assert.Equal(t, map[string]int{"Global": 7}, got.Counts(domain.FieldDistributorNames))
}

func TestNormalize_DuplicateKeepsPositionTakesLaterCount(t *testing.T) {
	got := Normalize([]engine.RawFacetCount{{
		FieldName: domain.FieldManufacturerName,
		Counts:    []engine.RawFacetValue{val("Acme", "1"), val("Bolt", "4"), val("Acme", "4")},
	}})

	assert.Equal(t, []string{"Acme", "Bolt"}, got.Values(domain.FieldManufacturerName))
	assert.Equal(t, 4, got.Counts(domain.FieldManufacturerName)["Acme"])
}

func TestNormalize_Empty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
}
