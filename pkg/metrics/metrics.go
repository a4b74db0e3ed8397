// Package metrics registers the Prometheus collectors the HTTP server
// and resolver report into, and exposes them on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "k8s_manager_http_request_duration_seconds",
		Help: "HTTP request latency by route and status code.",
	}, []string{"method", "route", "status"})

	resolverCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "k8s_manager_resolver_calls_total",
		Help: "Resource graph resolutions, by root kind and outcome.",
	}, []string{"kind", "outcome"})

	graphNodes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "k8s_manager_resolver_graph_nodes",
		Help:    "Node count of resolved graphs, by root kind.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(requestDuration, resolverCalls, graphNodes)
}

// Middleware times every HTTP request and records it against route and
// status code.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		requestDuration.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the registered collectors for scraping.
func Handler() fiber.Handler {
	h := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		h(c.Context())
		return nil
	}
}

// ObserveResolve records a single ResolveGraph call's outcome and, on
// success, the size of the graph it produced.
func ObserveResolve(kind string, nodeCount int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	resolverCalls.WithLabelValues(kind, outcome).Inc()
	if err == nil {
		graphNodes.WithLabelValues(kind).Observe(float64(nodeCount))
	}
}
