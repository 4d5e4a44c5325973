// Package exporter turns parsed thread stacks and allocation events into
// pprof profiles and hands each serialized window to a log processor as
// a single record.
package exporter

import "go.opentelemetry.io/otel/attribute"

// Attribute keys shared by profile samples and outbound records.
const (
	SourceTypeKey            = attribute.Key("com.splunk.sourcetype")
	DataTypeKey              = attribute.Key("profiling.data.type")
	DataFormatKey            = attribute.Key("profiling.data.format")
	InstrumentationSourceKey = attribute.Key("profiling.instrumentation.source")
	FrameCountKey            = attribute.Key("profiling.data.total.frame.count")

	SourceEventNameKey   = attribute.Key("source.event.name")
	SourceEventPeriodKey = attribute.Key("source.event.period") // milliseconds
	SourceEventTimeKey   = attribute.Key("source.event.time")   // epoch milliseconds

	ThreadIDKey             = attribute.Key("thread.id")
	ThreadNameKey           = attribute.Key("thread.name")
	ThreadOSIDKey           = attribute.Key("thread.os.id")
	ThreadStateKey          = attribute.Key("thread.state")
	ThreadStackTruncatedKey = attribute.Key("thread.stack.truncated")

	TraceIDKey = attribute.Key("trace_id")
	SpanIDKey  = attribute.Key("span_id")
)

// ProfilingSource is the source type of every profiling record. It is
// also used as the record name.
const ProfilingSource = "otel.profiling"

// DataType says what a profile measures.
type DataType string

const (
	CPU        DataType = "cpu"
	Allocation DataType = "allocation"
)

// InstrumentationSource says how the data was collected.
type InstrumentationSource string

const (
	Continuous InstrumentationSource = "continuous"
	Snapshot   InstrumentationSource = "snapshot"
)
