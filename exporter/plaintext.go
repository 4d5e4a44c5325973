package exporter

import (
	"jvmScope/converter"
	"jvmScope/logs"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// PlainTextCPUExporter emits every raw stack as its own text record. It
// is the legacy format; PprofCPUExporter is far more compact.
type PlainTextCPUExporter struct {
	processor LogProcessor
	periods   *EventPeriods
}

// NewPlainTextCPUExporter creates the legacy text exporter.
func NewPlainTextCPUExporter(processor LogProcessor, periods *EventPeriods) *PlainTextCPUExporter {
	log.Warn("Plain text profiling format is deprecated and will be removed in a future release")
	if periods == nil {
		periods = NewEventPeriods(nil)
	}
	return &PlainTextCPUExporter{
		processor: processor,
		periods:   periods,
	}
}

// Export emits event.RawStack as is. Events without raw text are
// skipped.
func (e *PlainTextCPUExporter) Export(event Event) {
	if event.RawStack == "" {
		return
	}

	attrs := []attribute.KeyValue{
		SourceTypeKey.String(ProfilingSource),
		SourceEventNameKey.String(event.SourceEventName),
	}
	if d, ok := e.periods.Duration(event.SourceEventName); ok {
		attrs = append(attrs, SourceEventPeriodKey.Int64(d.Milliseconds()))
	}
	attrs = append(attrs,
		DataTypeKey.String(string(CPU)),
		DataFormatKey.String(string(converter.Text)),
	)

	entry := logs.Entry{
		Name:       ProfilingSource,
		Attributes: attrs,
		Time:       event.Time,
		Body:       logs.StringBody(event.RawStack),
	}
	if event.SpanContext.IsValid() {
		entry.SpanContext = event.SpanContext
	}
	e.processor.Log(entry)
}

// Flush is a no-op: records are emitted by Export.
func (e *PlainTextCPUExporter) Flush() error { return nil }
