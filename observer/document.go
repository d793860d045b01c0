package observer

import (
	"context"
	"time"

	"github.com/nevindra/kitabi"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
)

// RecordDocument counts one processed document, attributed by extraction
// method and structure source. A failed document carries only the status.
func (inst *Instruments) RecordDocument(ctx context.Context, rec kitabi.Record, elapsed time.Duration, err error) {
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case rec.Degraded:
		status = "degraded"
	}
	durationMs := float64(elapsed.Milliseconds())

	attrs := metric.WithAttributes(
		AttrMethod.String(string(rec.Extraction.Method)),
		AttrStructureSource.String(string(rec.StructureSource)),
		AttrScanned.Bool(rec.Classification.IsScanned),
		AttrStatus.String(status),
	)
	inst.Documents.Add(ctx, 1, attrs)
	inst.DocumentDuration.Record(ctx, durationMs, attrs)

	var lr otellog.Record
	lr.SetSeverity(otellog.SeverityInfo)
	lr.SetBody(otellog.StringValue("document processed"))
	lr.AddAttributes(
		otellog.String("document.name", rec.Name),
		otellog.String("document.language", string(rec.Language)),
		otellog.String("document.method", string(rec.Extraction.Method)),
		otellog.Int("document.pages", rec.PageCount),
		otellog.Int("document.sections", len(rec.Sections)),
		otellog.Float64("document.duration_ms", durationMs),
		otellog.String("status", status),
	)
	if err != nil {
		lr.SetSeverity(otellog.SeverityError)
		lr.AddAttributes(otellog.String("error", err.Error()))
	}
	inst.Logger.Emit(ctx, lr)
}
