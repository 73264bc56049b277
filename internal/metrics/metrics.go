// Package metrics collects Prometheus metrics for inbound requests and
// outbound calls to the identity provider and prediction service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream targets.
const (
	TargetKeycloak  = "keycloak"
	TargetJWKS      = "jwks"
	TargetPredictor = "predictor"
)

// Collector holds the service's metric vectors.
type Collector struct {
	gatherer         prometheus.Gatherer
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// NewCollector creates a Collector on its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := newCollector(reg)
	c.gatherer = reg
	return c
}

func newCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fireguard_http_requests_total",
			Help: "Inbound HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fireguard_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fireguard_upstream_requests_total",
			Help: "Outbound HTTP requests by target, method and status code.",
		}, []string{"target", "method", "code"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fireguard_upstream_request_duration_seconds",
			Help:    "Outbound HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"target", "method"}),
	}

	reg.MustRegister(c.requests, c.requestDuration, c.upstreamRequests, c.upstreamDuration)
	return c
}

// ObserveRequest records one inbound request.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// InstrumentClient returns a copy of client whose transport records
// outbound requests under target.
func (c *Collector) InstrumentClient(target string, client *http.Client) *http.Client {
	next := client.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	labels := prometheus.Labels{"target": target}
	transport := promhttp.InstrumentRoundTripperCounter(
		c.upstreamRequests.MustCurryWith(labels),
		promhttp.InstrumentRoundTripperDuration(c.upstreamDuration.MustCurryWith(labels), next),
	)

	instrumented := *client
	instrumented.Transport = transport
	return &instrumented
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
