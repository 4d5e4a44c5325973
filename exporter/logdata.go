package exporter

import (
	"time"

	"jvmScope/converter"
	"jvmScope/logs"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// LogProcessor accepts outbound records. processor.Batching[logs.Entry]
// satisfies it.
type LogProcessor interface {
	Log(entry logs.Entry)
}

// LogDataExporter wraps one serialized profile into a log record with
// the fixed profiling classification attributes.
type LogDataExporter struct {
	processor LogProcessor
	dataType  DataType
	format    converter.DataFormat
	common    []attribute.KeyValue
	now       func() time.Time
}

// NewLogDataExporter creates an exporter for one data type and format.
func NewLogDataExporter(processor LogProcessor, dataType DataType, format converter.DataFormat, source InstrumentationSource) *LogDataExporter {
	return &LogDataExporter{
		processor: processor,
		dataType:  dataType,
		format:    format,
		common: []attribute.KeyValue{
			SourceTypeKey.String(ProfilingSource),
			DataTypeKey.String(string(dataType)),
			DataFormatKey.String(string(format)),
			InstrumentationSourceKey.String(string(source)),
		},
		now: time.Now,
	}
}

// Export emits one record carrying body. frameCount is the total number
// of stack frames in the profile.
func (e *LogDataExporter) Export(body []byte, frameCount int) {
	log.WithFields(log.Fields{
		"type":   e.dataType,
		"format": e.format,
		"size":   len(body),
		"frames": frameCount,
	}).Debug("Exporting profile")

	attrs := make([]attribute.KeyValue, 0, len(e.common)+1)
	attrs = append(attrs, e.common...)
	attrs = append(attrs, FrameCountKey.Int(frameCount))

	entry := logs.Entry{
		Name:       ProfilingSource,
		Attributes: attrs,
		Time:       e.now(),
	}
	if e.format.TextSafe() {
		entry.Body = logs.StringBody(string(body))
	} else {
		entry.Body = logs.BytesBody(body)
	}
	e.processor.Log(entry)
}
