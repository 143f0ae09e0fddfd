package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"medication-alerts/internal/common/logger"
)

// Observability records per-operation counts and latencies through the otel
// meter API. A nil *Observability is valid and records nothing.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	opCounter     otelmetric.Int64Counter
	opDuration    otelmetric.Float64Histogram
}

// New registers the otel prometheus exporter with the default registry, so it
// must be called at most once per process.
func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	opCounter, _ := meter.Int64Counter(
		"operations.processed",
		otelmetric.WithDescription("Number of engine operations processed"),
	)

	opDuration, _ := meter.Float64Histogram(
		"operations.duration",
		otelmetric.WithDescription("Engine operation duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		opCounter:     opCounter,
		opDuration:    opDuration,
	}
}

// Track records one finished operation. Typical use:
//
//	defer obs.Track(ctx, "record_dose", time.Now(), &err)
func (o *Observability) Track(ctx context.Context, operation string, started time.Time, errp *error) {
	status := "ok"
	if errp != nil && *errp != nil {
		status = "error"
	}
	o.RecordOperation(ctx, operation, status)
	o.RecordDuration(ctx, operation, time.Since(started), status)
}

func (o *Observability) RecordOperation(ctx context.Context, operation, status string) {
	if o == nil || o.opCounter == nil {
		return
	}
	o.opCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordDuration(ctx context.Context, operation string, duration time.Duration, status string) {
	if o == nil || o.opDuration == nil {
		return
	}
	o.opDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
