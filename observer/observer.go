// Package observer provides OTEL-based observability for kitabi.
//
// It supplies a kitabi.Tracer for pipeline stage spans, wraps a
// CloudAnalyzer with an instrumented version that emits traces, metrics and
// logs with per-page cost, and records per-document pipeline metrics. Users
// export to any OTEL-compatible backend by setting standard OTEL env vars.
package observer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/nevindra/kitabi/observer"

// Instruments holds all OTEL instruments used by the observer wrappers.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// Cloud analysis
	CloudPages    metric.Int64Counter
	CloudRequests metric.Int64Counter
	CostTotal     metric.Float64Counter
	CloudDuration metric.Float64Histogram

	// Pipeline
	Documents        metric.Int64Counter
	DocumentDuration metric.Float64Histogram

	Cost *CostCalculator
}

// Init installs global OTEL trace, metric and log providers exporting over
// OTLP HTTP, configured by the standard OTEL_* env vars. The returned
// shutdown flushes and stops every provider and must be called on exit.
func Init(ctx context.Context, pricing map[string]PagePricing) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("kitabi")),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*Instruments, func(context.Context) error, error) {
		_ = shutdown(ctx)
		return nil, nil, err
	}

	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return fail(fmt.Errorf("trace exporter: %w", err))
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	shutdowns = append(shutdowns, tp.Shutdown)

	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return fail(fmt.Errorf("metric exporter: %w", err))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	shutdowns = append(shutdowns, mp.Shutdown)

	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		return fail(fmt.Errorf("log exporter: %w", err))
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)
	shutdowns = append(shutdowns, lp.Shutdown)

	inst, err := newInstruments(pricing)
	if err != nil {
		return fail(err)
	}
	return inst, shutdown, nil
}

// newInstruments registers the kitabi instruments on the global providers.
func newInstruments(pricing map[string]PagePricing) (*Instruments, error) {
	meter := otel.Meter(scopeName)
	inst := &Instruments{
		Tracer: otel.Tracer(scopeName),
		Meter:  meter,
		Logger: global.GetLoggerProvider().Logger(scopeName),
		Cost:   NewCostCalculator(pricing),
	}

	var errs []error
	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		errs = append(errs, err)
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("ms"))
		errs = append(errs, err)
		return h
	}

	inst.CloudPages = counter("cloud.pages", "Pages analyzed by the cloud service", "{page}")
	inst.CloudRequests = counter("cloud.requests", "Cloud analysis requests by status", "{request}")
	inst.CloudDuration = histogram("cloud.duration", "Cloud analysis call duration")
	inst.Documents = counter("pipeline.documents", "Processed documents by method and status", "{document}")
	inst.DocumentDuration = histogram("pipeline.duration", "Document processing duration")

	cost, err := meter.Float64Counter("cloud.cost.total",
		metric.WithDescription("Cumulative cloud analysis cost"),
		metric.WithUnit("USD"))
	errs = append(errs, err)
	inst.CostTotal = cost

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("observer instruments: %w", err)
	}
	return inst, nil
}

// HTTPClient returns an HTTP client whose transport emits a client span per
// request, for use with the cloud provider's WithHTTPClient option.
func HTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}
