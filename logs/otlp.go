package logs

import (
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/plog"
	"go.opentelemetry.io/otel/attribute"
)

// Scope identifies the component that produced a batch.
type Scope struct {
	Name    string
	Version string
}

// eventNameKey carries Entry.Name; the log record has no name field.
const eventNameKey = "event.name"

// ToLogs converts a batch into OTLP log data under a single resource
// and scope. Entry order is preserved.
func ToLogs(resource []attribute.KeyValue, scope Scope, entries []Entry) plog.Logs {
	ld := plog.NewLogs()
	rl := ld.ResourceLogs().AppendEmpty()
	putAttributes(rl.Resource().Attributes(), resource)

	sl := rl.ScopeLogs().AppendEmpty()
	sl.Scope().SetName(scope.Name)
	sl.Scope().SetVersion(scope.Version)

	records := sl.LogRecords()
	records.EnsureCapacity(len(entries))
	for _, entry := range entries {
		appendRecord(records.AppendEmpty(), entry)
	}
	return ld
}

func appendRecord(lr plog.LogRecord, entry Entry) {
	// Millisecond precision, matching what the profiler records.
	lr.SetTimestamp(pcommon.NewTimestampFromTime(entry.Time.Truncate(1e6)))

	switch entry.Body.Kind() {
	case BodyString:
		lr.Body().SetStr(entry.Body.AsString())
	case BodyBytes:
		lr.Body().SetEmptyBytes().FromRaw(entry.Body.Bytes())
	}

	attrs := lr.Attributes()
	attrs.EnsureCapacity(len(entry.Attributes) + 1)
	putAttributes(attrs, entry.Attributes)
	if entry.Name != "" {
		attrs.PutStr(eventNameKey, entry.Name)
	}

	sc := entry.SpanContext
	if sc.HasTraceID() {
		lr.SetTraceID(pcommon.TraceID(sc.TraceID()))
	}
	if sc.HasSpanID() {
		lr.SetSpanID(pcommon.SpanID(sc.SpanID()))
		lr.SetFlags(plog.LogRecordFlags(sc.TraceFlags()))
	}
}

func putAttributes(dest pcommon.Map, attrs []attribute.KeyValue) {
	for _, kv := range attrs {
		key := string(kv.Key)
		switch kv.Value.Type() {
		case attribute.BOOL:
			dest.PutBool(key, kv.Value.AsBool())
		case attribute.INT64:
			dest.PutInt(key, kv.Value.AsInt64())
		case attribute.FLOAT64:
			dest.PutDouble(key, kv.Value.AsFloat64())
		case attribute.STRING:
			dest.PutStr(key, kv.Value.AsString())
		case attribute.STRINGSLICE:
			slice := dest.PutEmptySlice(key)
			for _, s := range kv.Value.AsStringSlice() {
				slice.AppendEmpty().SetStr(s)
			}
		default:
			dest.PutStr(key, kv.Value.Emit())
		}
	}
}
