// Package metrics exposes Prometheus counters for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what handlers and services report into.
type Recorder interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordSessionCache(hit bool)
	RecordMailDispatch(outcome string)
	RecordRateLimited(route string)
	RecordAvatarLookup(outcome string)
}

type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	sessionCache  *prometheus.CounterVec
	mailDispatch  *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
	avatarLookups *prometheus.CounterVec
}

// NewCollector registers the API metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contacts_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contacts_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		sessionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contacts_session_cache_total",
			Help: "Session cache lookups by result.",
		}, []string{"result"}),
		mailDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contacts_mail_dispatch_total",
			Help: "Confirmation mail dispatches by outcome.",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contacts_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"route"}),
		avatarLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contacts_avatar_lookups_total",
			Help: "Gravatar lookups by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.sessionCache,
		c.mailDispatch,
		c.rateLimited,
		c.avatarLookups,
	)

	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordSessionCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.sessionCache.WithLabelValues(result).Inc()
}

func (c *Collector) RecordMailDispatch(outcome string) {
	c.mailDispatch.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRateLimited(route string) {
	c.rateLimited.WithLabelValues(route).Inc()
}

func (c *Collector) RecordAvatarLookup(outcome string) {
	c.avatarLookups.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordSessionCache(bool)                              {}
func (Nop) RecordMailDispatch(string)                            {}
func (Nop) RecordRateLimited(string)                             {}
func (Nop) RecordAvatarLookup(string)                            {}
