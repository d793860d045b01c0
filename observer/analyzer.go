package observer

import (
	"context"
	"time"

	"github.com/nevindra/kitabi"

	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedAnalyzer wraps a kitabi.CloudAnalyzer with OTEL instrumentation.
type ObservedAnalyzer struct {
	inner kitabi.CloudAnalyzer
	inst  *Instruments
	model string
}

var _ kitabi.CloudAnalyzer = (*ObservedAnalyzer)(nil)

// WrapAnalyzer returns an instrumented analyzer that emits traces, metrics,
// and logs. model selects the page price used for cost accounting.
func WrapAnalyzer(inner kitabi.CloudAnalyzer, model string, inst *Instruments) *ObservedAnalyzer {
	return &ObservedAnalyzer{inner: inner, inst: inst, model: model}
}

func (o *ObservedAnalyzer) Name() string { return o.inner.Name() }

func (o *ObservedAnalyzer) Analyze(ctx context.Context, pdf []byte, r kitabi.PageRange) (kitabi.Analysis, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "cloud.analyze", trace.WithAttributes(
		AttrCloudService.String(o.inner.Name()),
		AttrCloudModel.String(o.model),
		AttrPageStart.Int(r.Start),
		AttrPageEnd.Int(r.End),
	))
	defer span.End()
	start := time.Now()

	a, err := o.inner.Analyze(ctx, pdf, r)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	o.record(ctx, span, status, durationMs, len(a.Pages))
	return a, err
}

func (o *ObservedAnalyzer) record(ctx context.Context, span trace.Span, status string, durationMs float64, pages int) {
	cost := o.inst.Cost.Calculate(o.model, pages)

	attrs := metric.WithAttributes(
		AttrCloudService.String(o.inner.Name()),
		AttrCloudModel.String(o.model),
	)

	span.SetAttributes(
		AttrCloudPages.Int(pages),
		AttrCostUSD.Float64(cost),
	)

	o.inst.CloudPages.Add(ctx, int64(pages), attrs)
	o.inst.CostTotal.Add(ctx, cost, attrs)
	o.inst.CloudRequests.Add(ctx, 1, metric.WithAttributes(
		AttrCloudService.String(o.inner.Name()),
		AttrCloudModel.String(o.model),
		AttrStatus.String(status),
	))
	o.inst.CloudDuration.Record(ctx, durationMs, attrs)

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("cloud analysis completed"))
	rec.AddAttributes(
		otellog.String("cloud.service", o.inner.Name()),
		otellog.String("cloud.model", o.model),
		otellog.Int("cloud.pages", pages),
		otellog.Float64("cloud.cost_usd", cost),
		otellog.Float64("cloud.duration_ms", durationMs),
		otellog.String("status", status),
	)
	o.inst.Logger.Emit(ctx, rec)
}
