package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/products", nil)
	p := FromRequest(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_CustomValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/products?page=3&per_page=50", nil)
	p := FromRequest(req)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.PerPage)
	assert.Equal(t, 100, p.Offset)
}

func TestFromRequest_PerPageBounds(t *testing.T) {
	tests := []struct {
		perPage string
		want    int
	}{
		{"0", DefaultPerPage},
		{"100", 100},
		{"200", DefaultPerPage},
		{"abc", DefaultPerPage},
	}
	for _, tt := range tests {
		t.Run(tt.perPage, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x?per_page="+tt.perPage, nil)
			assert.Equal(t, tt.want, FromRequest(req).PerPage)
		})
	}
}

func TestPageFromString(t *testing.T) {
	assert.Equal(t, 1, PageFromString(""))
	assert.Equal(t, 1, PageFromString("-1"))
	assert.Equal(t, 1, PageFromString("0"))
	assert.Equal(t, 1, PageFromString("abc"))
	assert.Equal(t, 7, PageFromString("7"))
	assert.Equal(t, MaxPage, PageFromString("9223372036854775807"))
	assert.Equal(t, 1, PageFromString("99999999999999999999"))
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(11, 3, 5)
	assert.Equal(t, 3, m.TotalPages)
	assert.False(t, m.HasNext)
	assert.True(t, m.HasPrev)

	m = NewMeta(20, 1, 5)
	assert.True(t, m.HasNext)
	assert.False(t, m.HasPrev)

	m = NewMeta(0, 1, 12)
	assert.Equal(t, 0, m.TotalPages)
	assert.False(t, m.HasNext)
}

func TestNewMeta_ZeroPerPage(t *testing.T) {
	m := NewMeta(10, 1, 0)
	assert.Equal(t, 0, m.TotalPages)
}

func TestNewResult_NilDataBecomesEmpty(t *testing.T) {
	r := NewResult[string](nil, 0, DefaultParams())
	assert.NotNil(t, r.Data)
	assert.Empty(t, r.Data)
}

func TestNewResult_MultiplePages(t *testing.T) {
	r := NewResult([]string{"a", "b"}, 10, Params{Page: 2, PerPage: 2, Offset: 2})

	assert.Equal(t, 10, r.Total)
	assert.Equal(t, 5, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.True(t, r.HasPrev)
}
