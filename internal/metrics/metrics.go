// Package metrics exposes request metrics in the Prometheus text format.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	export "go.opentelemetry.io/otel/sdk/export/metric"
	"go.opentelemetry.io/otel/sdk/metric/aggregator/histogram"
	controller "go.opentelemetry.io/otel/sdk/metric/controller/basic"
	processor "go.opentelemetry.io/otel/sdk/metric/processor/basic"
	selector "go.opentelemetry.io/otel/sdk/metric/selector/simple"
)

var (
	methodKey = attribute.Key("http.method")
	routeKey  = attribute.Key("http.route")
	statusKey = attribute.Key("http.status_code")
)

// Metrics holds the exporter and the HTTP instruments.
type Metrics struct {
	exporter *prometheus.Exporter

	requests metric.Int64Counter
	latency  metric.Float64ValueRecorder
	articles metric.Int64Counter
}

// New sets up a Prometheus exporter with its own registry.
func New(serviceName string) (*Metrics, error) {
	config := prometheus.Config{}
	c := controller.New(
		processor.New(
			selector.NewWithHistogramDistribution(
				histogram.WithExplicitBoundaries(config.DefaultHistogramBoundaries),
			),
			export.CumulativeExportKindSelector(),
			processor.WithMemory(true),
		),
	)
	exporter, err := prometheus.New(config, c)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prometheus exporter: %w", err)
	}

	meter := metric.Must(exporter.MeterProvider().Meter(serviceName))

	return &Metrics{
		exporter: exporter,
		requests: meter.NewInt64Counter(
			"http.server.requests",
			metric.WithDescription("Count of completed requests, by HTTP method, route and response status"),
		),
		latency: meter.NewFloat64ValueRecorder(
			"http.server.duration",
			metric.WithDescription("Request latency in milliseconds, by HTTP method and route"),
			metric.WithUnit("ms"),
		),
		articles: meter.NewInt64Counter(
			"blogcms.articles.mutations",
			metric.WithDescription("Article mutations that succeeded, by method"),
		),
	}, nil
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return m.exporter
}

// Middleware records every request once the handler returns. Routes are
// labelled by pattern so ids do not explode the label space.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		ctx := r.Context()
		m.requests.Add(ctx, 1, methodKey.String(r.Method), routeKey.String(route), statusKey.String(strconv.Itoa(status)))
		m.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, methodKey.String(r.Method), routeKey.String(route))

		if isArticleMutation(r.Method, route) && status < http.StatusBadRequest {
			m.articles.Add(ctx, 1, methodKey.String(r.Method))
		}
	})
}

func isArticleMutation(method, route string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return false
	}

	switch route {
	case "/api/articles/", "/api/articles/{articleID}/", "/api/article/{articleID}/":
		return true
	default:
		return false
	}
}
