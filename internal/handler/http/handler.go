// Package http exposes the catalog over HTTP: public browsing and product
// detail, admin CRUD, and reindex triggering.
package http

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/utafrali/CatalogGo/pkg/httputil"
	"github.com/utafrali/CatalogGo/pkg/pagination"
	"github.com/utafrali/CatalogGo/pkg/validator"
)

const maxBodyBytes = 1 << 20

// ContentTypeJSON rejects write requests whose body is not JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mt != "application/json" {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// decode reads a size-limited JSON body into dst and validates it. On failure
// the response has been written and false is returned.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}

func writeInvalidParameter(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: message},
	})
}

// listParams reads page and per_page. Out of range values are rejected.
func listParams(w http.ResponseWriter, r *http.Request) (pagination.Params, bool) {
	p := pagination.DefaultParams()
	if v := r.URL.Query().Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 || page > pagination.MaxPage {
			writeInvalidParameter(w, "page must be a valid integer between 1 and 10000")
			return p, false
		}
		p.Page = page
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 || perPage > pagination.MaxPerPage {
			writeInvalidParameter(w, "per_page must be a valid integer between 1 and 100")
			return p, false
		}
		p.PerPage = perPage
	}
	p.Offset = (p.Page - 1) * p.PerPage
	return p, true
}

// writeList writes one page of a listing with its metadata.
func writeList[T any](w http.ResponseWriter, data []T, total int, p pagination.Params) {
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(data, total, p))
}
