package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/marcelsud/webhook-relay/webhook"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export in Prometheus format.
// It also implements webhook.Observer for the forwarding instruments.
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector
	registry      *promclient.Registry

	// OTel meters and instruments
	meter            metric.Meter
	failuresGauge    metric.Int64ObservableGauge
	undefinedGauge   metric.Int64ObservableGauge
	attempts         metric.Int64Counter
	attemptDuration  metric.Float64Histogram
	detachedInFlight metric.Int64UpDownCounter
}

var _ webhook.Observer = (*OTelExporter)(nil)

// NewOTelExporter creates a new OpenTelemetry metrics exporter backed by its own Prometheus registry
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	registry := promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(
		"webhook-relay",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		registry:      registry,
		meter:         meter,
	}

	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	oe.failuresGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.failures.recorded",
		metric.WithDescription("Number of recorded failed deliveries per source"),
		metric.WithUnit("{records}"),
		metric.WithInt64Callback(oe.observeFailures),
	)
	if err != nil {
		return fmt.Errorf("creating failures gauge: %w", err)
	}

	oe.undefinedGauge, err = oe.meter.Int64ObservableGauge(
		"webhook.undefined_routes.recorded",
		metric.WithDescription("Number of recorded requests that matched no route"),
		metric.WithUnit("{records}"),
		metric.WithInt64Callback(oe.observeUndefined),
	)
	if err != nil {
		return fmt.Errorf("creating undefined routes gauge: %w", err)
	}

	oe.attempts, err = oe.meter.Int64Counter(
		"webhook.forward.attempts",
		metric.WithDescription("Forward attempts by source, mode and outcome"),
		metric.WithUnit("{attempts}"),
	)
	if err != nil {
		return fmt.Errorf("creating attempts counter: %w", err)
	}

	oe.attemptDuration, err = oe.meter.Float64Histogram(
		"webhook.forward.duration",
		metric.WithDescription("Time spent forwarding to the destination"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating duration histogram: %w", err)
	}

	oe.detachedInFlight, err = oe.meter.Int64UpDownCounter(
		"webhook.detached.inflight",
		metric.WithDescription("Detached forwards currently running"),
		metric.WithUnit("{forwards}"),
	)
	if err != nil {
		return fmt.Errorf("creating detached gauge: %w", err)
	}

	return nil
}

// observeFailures is a callback that reports failure records per source
func (oe *OTelExporter) observeFailures(ctx context.Context, observer metric.Int64Observer) error {
	counts, err := oe.collector.GetFailuresBySource(ctx)
	if err != nil {
		return err
	}

	for source, count := range counts {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("webhook.source", source),
		))
	}

	return nil
}

func (oe *OTelExporter) observeUndefined(ctx context.Context, observer metric.Int64Observer) error {
	count, err := oe.collector.GetUndefinedRoutes(ctx)
	if err != nil {
		return err
	}
	observer.Observe(count)
	return nil
}

// ObserveAttempt records the outcome of one forward attempt
func (oe *OTelExporter) ObserveAttempt(ctx context.Context, source string, mode webhook.Mode, state webhook.State, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("webhook.source", source),
		attribute.String("webhook.mode", mode.String()),
		attribute.String("webhook.outcome", state.String()),
	)
	oe.attempts.Add(ctx, 1, attrs)
	oe.attemptDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// ObserveDetached tracks detached forwards entering (+1) and leaving (-1)
func (oe *OTelExporter) ObserveDetached(ctx context.Context, delta int64) {
	oe.detachedInFlight.Add(ctx, delta)
}

// ServeHTTP returns the handler serving Prometheus-formatted metrics
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.HandlerFor(oe.registry, promhttp.HandlerOpts{})
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
