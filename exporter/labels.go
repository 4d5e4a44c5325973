package exporter

import (
	"time"

	"jvmScope/converter"

	"github.com/google/pprof/profile"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func addEventLabels(b *converter.Builder, sample *profile.Sample, periods *EventPeriods, eventName string, t time.Time) {
	b.AddLabel(sample, string(SourceEventNameKey), eventName)
	if d, ok := periods.Duration(eventName); ok {
		b.AddNumLabel(sample, string(SourceEventPeriodKey), d.Milliseconds())
	}
	b.AddNumLabel(sample, string(SourceEventTimeKey), t.UnixMilli())
}

func addSpanLabels(b *converter.Builder, sample *profile.Sample, sc trace.SpanContext) {
	if !sc.IsValid() {
		return
	}
	b.AddLabel(sample, string(TraceIDKey), sc.TraceID().String())
	b.AddLabel(sample, string(SpanIDKey), sc.SpanID().String())
}

// addAttributeLabels copies attributes onto a sample. Numbers become
// numeric labels, everything else string labels.
func addAttributeLabels(b *converter.Builder, sample *profile.Sample, attrs []attribute.KeyValue) {
	for _, kv := range attrs {
		switch kv.Value.Type() {
		case attribute.INT64:
			b.AddNumLabel(sample, string(kv.Key), kv.Value.AsInt64())
		case attribute.BOOL:
			b.AddBoolLabel(sample, string(kv.Key), kv.Value.AsBool())
		default:
			b.AddLabel(sample, string(kv.Key), kv.Value.Emit())
		}
	}
}
