// Package metrics exposes Prometheus instrumentation for skyd: HTTP traffic,
// engine search cost, TLE group resolution and rate limiting.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several servers (and tests) can live
// in one process.
type Collector struct {
	reg *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpDurationSeconds *prometheus.HistogramVec
	searchDuration      *prometheus.HistogramVec
	searchTruncated     *prometheus.CounterVec
	tleFetches          *prometheus.CounterVec
	rateLimited         prometheus.Counter
}

func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyengine_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"route", "method", "code"},
		),
		httpDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skyengine_http_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skyengine_search_duration_seconds",
				Help:    "Time spent in engine searches.",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
		searchTruncated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyengine_search_truncated_total",
				Help: "Searches that stopped at their result cap.",
			},
			[]string{"kind"},
		),
		tleFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skyengine_tle_fetch_total",
				Help: "Satellite group resolutions by source tier.",
			},
			[]string{"group", "source"},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "skyengine_rate_limited_total",
				Help: "Requests rejected by the per-client rate limiter.",
			},
		),
	}
	c.reg.MustRegister(
		c.httpRequestsTotal,
		c.httpDurationSeconds,
		c.searchDuration,
		c.searchTruncated,
		c.tleFetches,
		c.rateLimited,
		collectors.NewGoCollector(),
	)
	return c
}

// Handler returns the exposition handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

// Registry exposes the registry for additional collectors such as gauges
// owned by the caller.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// ObserveSearch records one engine search.
func (c *Collector) ObserveSearch(kind string, took time.Duration, truncated bool) {
	c.searchDuration.WithLabelValues(kind).Observe(took.Seconds())
	if truncated {
		c.searchTruncated.WithLabelValues(kind).Inc()
	}
}

// ObserveTLEFetch records which tier served a group.
func (c *Collector) ObserveTLEFetch(group, source string) {
	c.tleFetches.WithLabelValues(group, source).Inc()
}

// RateLimited counts one rejected request.
func (c *Collector) RateLimited() { c.rateLimited.Inc() }

// responseWriter captures the status code. It forwards Hijack so the
// WebSocket upgrade still works behind the middleware.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Middleware records request count and duration, labelled by the matched
// ServeMux pattern so path parameters do not explode cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		code := strconv.Itoa(rw.statusCode)

		c.httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		c.httpDurationSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
