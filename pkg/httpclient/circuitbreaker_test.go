package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// newTestBreaker points a breaker at handler. It trips after three requests
// with at least half failing and stays open for openFor.
func newTestBreaker(t *testing.T, name string, openFor time.Duration, handler http.HandlerFunc) *CircuitBreakerClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Config{BaseURL: server.URL, Timeout: 5 * time.Second, MaxConnsPerHost: 10})
	return NewCircuitBreakerClient(client, CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      openFor,
		FailureRatio: 0.5,
		MinRequests:  3,
	}, slog.New(slog.DiscardHandler))
}

func TestDoJSON_RoundTrip(t *testing.T) {
	cb := newTestBreaker(t, "ts-json", time.Second, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/products/documents", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		var in map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_, _ = w.Write([]byte(`{"id":"` + in["id"] + `","ok":true}`))
	})

	var out struct {
		ID string `json:"id"`
		OK bool   `json:"ok"`
	}
	err := cb.DoJSON(context.Background(), http.MethodPost, "/collections/products/documents", map[string]string{"id": "p1"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "p1", out.ID)
	assert.True(t, out.OK)
}

func TestDoJSON_ErrorTranslation(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		wantIs error
	}{
		{"missing document", http.StatusNotFound, `{"message":"Could not find a document with id: p1"}`, apperrors.ErrNotFound},
		{"bad filter", http.StatusBadRequest, `{"message":"Could not parse the filter query."}`, apperrors.ErrInvalidInput},
		{"lagging node", http.StatusServiceUnavailable, `{"message":"Not Ready or Lagging"}`, apperrors.ErrServiceUnavail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := newTestBreaker(t, "ts-"+tt.name, time.Second, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := cb.DoJSON(context.Background(), http.MethodGet, "/collections/products/documents/p1", nil, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	cb := newTestBreaker(t, "ts-4xx", time.Second, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for range 5 {
		err := cb.DoJSON(context.Background(), http.MethodDelete, "/collections/products/documents/gone", nil, nil)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_OpensAndRejectsWithoutCalling(t *testing.T) {
	var calls atomic.Int32
	cb := newTestBreaker(t, "ts-open", time.Minute, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for range 3 {
		_ = cb.DoJSON(context.Background(), http.MethodGet, "/health", nil, nil)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())
	before := calls.Load()

	for range 5 {
		err := cb.DoJSON(context.Background(), http.MethodGet, "/health", nil, nil)
		assert.ErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, before, calls.Load())
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	var healthy atomic.Bool
	cb := newTestBreaker(t, "ts-recover", 100*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	for range 3 {
		_ = cb.DoJSON(context.Background(), http.MethodGet, "/health", nil, nil)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	healthy.Store(true)
	require.Eventually(t, func() bool { return cb.State() == gobreaker.StateHalfOpen }, time.Second, 10*time.Millisecond)

	require.NoError(t, cb.DoJSON(context.Background(), http.MethodGet, "/health", nil, nil))
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_PostSendsRawBody(t *testing.T) {
	cb := newTestBreaker(t, "ts-import", time.Second, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "{\"id\":\"a\"}\n{\"id\":\"b\"}", string(body))
		_, _ = w.Write([]byte(`{"success":true}` + "\n" + `{"success":true}`))
	})

	resp, err := cb.Post(context.Background(), "/collections/products/documents/import", "text/plain",
		strings.NewReader("{\"id\":\"a\"}\n{\"id\":\"b\"}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("typesense")
	assert.Equal(t, "typesense", cfg.Name)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, uint32(5), cfg.MinRequests)
}
