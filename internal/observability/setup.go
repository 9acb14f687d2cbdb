package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	promreg "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/croftje/billingd/internal/config"
)

// Provider owns the metrics pipeline: a dedicated prometheus registry served
// at /metrics, bridged into an otel meter provider. Nil providers are safe to
// call everywhere, so disabling metrics needs no branching at call sites.
type Provider struct {
	meterProvider *metric.MeterProvider
	promExporter  *prometheus.Exporter
	promHandler   http.Handler
	shutdownFuncs []func(context.Context) error

	httpRequestCounter *promreg.CounterVec
	httpRequestLatency *promreg.HistogramVec
	queryLatency       *promreg.HistogramVec
	statementsBuilt    *promreg.CounterVec
}

func Setup(ctx context.Context, cfg config.ObservabilityConfig, cacheStats func() (hits, misses int64)) (*Provider, error) {
	if !cfg.EnableMetrics {
		return nil, nil
	}

	provider := &Provider{}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("billingd"),
		),
	)
	if err != nil {
		return nil, err
	}

	registry := promreg.NewRegistry()
	promExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(promExporter),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	provider.meterProvider = mp
	provider.promExporter = promExporter
	provider.promHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	provider.shutdownFuncs = append(provider.shutdownFuncs, mp.Shutdown)

	httpRequests := promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: "billingd",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	latencyBuckets := []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10}
	httpLatency := promreg.NewHistogramVec(
		promreg.HistogramOpts{
			Namespace: "billingd",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   latencyBuckets,
		},
		[]string{"method", "route", "status"},
	)
	queryLatency := promreg.NewHistogramVec(
		promreg.HistogramOpts{
			Namespace: "billingd",
			Name:      "db_query_duration_seconds",
			Help:      "Duration of event-log database queries.",
			Buckets:   latencyBuckets,
		},
		[]string{"status"},
	)
	statementsBuilt := promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: "billingd",
			Name:      "statements_built_total",
			Help:      "Billing and reconciliation statements assembled.",
		},
		[]string{"kind"},
	)
	for _, c := range []promreg.Collector{httpRequests, httpLatency, queryLatency, statementsBuilt} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	provider.httpRequestCounter = httpRequests
	provider.httpRequestLatency = httpLatency
	provider.queryLatency = queryLatency
	provider.statementsBuilt = statementsBuilt

	if cacheStats != nil {
		hitsCounter := promreg.NewCounterFunc(promreg.CounterOpts{
			Namespace: "billingd",
			Name:      "cache_hits_total",
			Help:      "Cumulative result-cache hits.",
		}, func() float64 {
			hits, _ := cacheStats()
			return float64(hits)
		})
		missesCounter := promreg.NewCounterFunc(promreg.CounterOpts{
			Namespace: "billingd",
			Name:      "cache_misses_total",
			Help:      "Cumulative result-cache misses.",
		}, func() float64 {
			_, misses := cacheStats()
			return float64(misses)
		})
		if err := registry.Register(hitsCounter); err != nil {
			return nil, err
		}
		if err := registry.Register(missesCounter); err != nil {
			return nil, err
		}
	}

	return provider, nil
}

func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil || p.promHandler == nil {
		return nil
	}
	return p.promHandler
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) RecordHTTPRequest(_ context.Context, method, route string, status int, duration time.Duration) {
	if p == nil {
		return
	}

	statusLabel := strconv.Itoa(status)

	if p.httpRequestCounter != nil {
		p.httpRequestCounter.WithLabelValues(method, route, statusLabel).Inc()
	}

	if p.httpRequestLatency != nil {
		p.httpRequestLatency.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
	}
}

// RecordQuery observes one event-log database round trip.
func (p *Provider) RecordQuery(elapsed time.Duration, err error) {
	if p == nil || p.queryLatency == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.queryLatency.WithLabelValues(status).Observe(elapsed.Seconds())
}

// RecordStatement counts one assembled statement ("billing" or
// "reconciliation").
func (p *Provider) RecordStatement(kind string) {
	if p == nil || p.statementsBuilt == nil {
		return
	}
	p.statementsBuilt.WithLabelValues(kind).Inc()
}
