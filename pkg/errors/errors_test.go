package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput,
		ErrMissingRelation, ErrInternal, ErrServiceUnavail,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j])
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	inner := fmt.Errorf("connection reset")
	withInner := &AppError{Code: "INTERNAL_ERROR", Message: "lookup failed", Err: inner}
	assert.Equal(t, "INTERNAL_ERROR: lookup failed: connection reset", withInner.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "product widget not found"}
	assert.Equal(t, "NOT_FOUND: product widget not found", bare.Error())
}

func TestNotFound(t *testing.T) {
	err := NotFound("product", "acme-drill")
	require.NotNil(t, err)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Equal(t, "product acme-drill not found", err.Message)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAlreadyExists(t *testing.T) {
	err := AlreadyExists("item", "sku", "SKU-1")
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.Contains(t, err.Message, `sku "SKU-1"`)
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestMissingRelation(t *testing.T) {
	err := MissingRelation("manufacturer does not exist")
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
	assert.True(t, errors.Is(err, ErrMissingRelation))
}

func TestServiceUnavailable_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := ServiceUnavailable("search index unreachable", cause)
	assert.Equal(t, http.StatusServiceUnavailable, err.Status)
	assert.True(t, errors.Is(err, ErrServiceUnavail))
	assert.True(t, errors.Is(err, cause))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", InvalidInput("bad"), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("get: %w", ErrNotFound), http.StatusNotFound},
		{"wrapped exists", fmt.Errorf("create: %w", ErrAlreadyExists), http.StatusConflict},
		{"missing relation", fmt.Errorf("index: %w", ErrMissingRelation), http.StatusUnprocessableEntity},
		{"unavailable", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
		wantIs   error
	}{
		{
			name:     "app error passes through",
			err:      fmt.Errorf("create item: %w", AlreadyExists("item", "sku", "AN-1")),
			wantCode: "ALREADY_EXISTS",
			wantMsg:  `item with sku "AN-1" already exists`,
			wantIs:   ErrAlreadyExists,
		},
		{
			name:     "not found hides the chain",
			err:      fmt.Errorf("load graph p-1: %w", ErrNotFound),
			wantCode: "NOT_FOUND",
			wantMsg:  "resource not found",
			wantIs:   ErrNotFound,
		},
		{
			name:     "invalid input shows the chain",
			err:      fmt.Errorf("parse filter: %w", ErrInvalidInput),
			wantCode: "INVALID_INPUT",
			wantMsg:  "parse filter: invalid input",
			wantIs:   ErrInvalidInput,
		},
		{
			name:     "unknown is internal",
			err:      errors.New("pool exhausted"),
			wantCode: "INTERNAL_ERROR",
			wantMsg:  "an internal error occurred",
			wantIs:   ErrInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantMsg, got.Message)
			assert.True(t, errors.Is(got, tt.wantIs))
		})
	}
}
