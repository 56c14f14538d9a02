package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-record-api/internal/handler"
)

func TestMetricsMiddleware(t *testing.T) {
	metrics := handler.NewMetrics()

	r := mux.NewRouter()
	r.Use(metrics.Middleware)
	r.HandleFunc("/transaction/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	r.HandleFunc("/stats", metrics.Stats).Methods(http.MethodGet)

	for _, target := range []string{"/transaction/1", "/transaction/2", "/transaction/3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]struct {
		Count  int64   `json:"count"`
		P99Ms  float64 `json:"p99_ms"`
		MeanMs float64 `json:"mean_ms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))

	route, ok := stats["GET /transaction/{id}"]
	require.True(t, ok, "latencies are grouped by route template, not raw path")
	assert.Equal(t, int64(3), route.Count)
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := handler.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "caller-id")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "caller-id", rec.Header().Get("X-Request-ID"))
}
