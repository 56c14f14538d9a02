package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/gorilla/mux"
)

// Metrics keeps one HDR histogram of request latency per route template,
// served back as percentiles on /stats.
type Metrics struct {
	mu         sync.Mutex
	histograms map[string]*hdrhistogram.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{histograms: make(map[string]*hdrhistogram.Histogram)}
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.record(r.Method+" "+route, time.Since(start).Microseconds())
	})
}

func (m *Metrics) record(route string, micros int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.histograms[route]
	if !ok {
		// up to 10s of latency at 3 significant figures
		h = hdrhistogram.New(1, 10_000_000_000, 3)
		m.histograms[route] = h
	}
	_ = h.RecordValue(micros)
}

type routeStats struct {
	Count  int64   `json:"count"`
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// Stats reports per-route latency percentiles accumulated since startup.
func (m *Metrics) Stats(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	stats := make(map[string]routeStats, len(m.histograms))
	for route, h := range m.histograms {
		stats[route] = routeStats{
			Count:  h.TotalCount(),
			MeanMs: h.Mean() / 1000.0,
			P50Ms:  float64(h.ValueAtQuantile(50)) / 1000.0,
			P95Ms:  float64(h.ValueAtQuantile(95)) / 1000.0,
			P99Ms:  float64(h.ValueAtQuantile(99)) / 1000.0,
		}
	}
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, stats)
}
