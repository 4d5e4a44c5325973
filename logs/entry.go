// Package logs holds the normalized record that flows from the profiling
// exporters through the batching processor to the transport, and its
// conversion to OTLP log data.
package logs

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BodyKind tells which field of a Body is set.
type BodyKind int

const (
	BodyEmpty BodyKind = iota
	BodyString
	BodyBytes
)

// Body is a log record payload: text or opaque bytes.
type Body struct {
	kind BodyKind
	str  string
	raw  []byte
}

// StringBody wraps a text payload.
func StringBody(s string) Body { return Body{kind: BodyString, str: s} }

// BytesBody wraps a binary payload. The slice is not copied.
func BytesBody(b []byte) Body { return Body{kind: BodyBytes, raw: b} }

func (b Body) Kind() BodyKind { return b.kind }

// AsString returns the payload as text. Binary payloads are converted
// byte for byte.
func (b Body) AsString() string {
	if b.kind == BodyBytes {
		return string(b.raw)
	}
	return b.str
}

// Bytes returns the payload as bytes.
func (b Body) Bytes() []byte {
	if b.kind == BodyString {
		return []byte(b.str)
	}
	return b.raw
}

// Len is the payload size in bytes.
func (b Body) Len() int {
	if b.kind == BodyBytes {
		return len(b.raw)
	}
	return len(b.str)
}

// Entry is one outbound log record. Once handed to a processor it must
// not be modified by the producer.
type Entry struct {
	Name        string
	Attributes  []attribute.KeyValue
	Time        time.Time
	Body        Body
	SpanContext trace.SpanContext
}

// TraceID returns the hex trace id, or "" when the entry carries no
// span context.
func (e Entry) TraceID() string {
	if !e.SpanContext.HasTraceID() {
		return ""
	}
	return e.SpanContext.TraceID().String()
}

// SpanID returns the hex span id, or "" when absent.
func (e Entry) SpanID() string {
	if !e.SpanContext.HasSpanID() {
		return ""
	}
	return e.SpanContext.SpanID().String()
}

// Attribute returns the value stored under key.
func (e Entry) Attribute(key attribute.Key) (attribute.Value, bool) {
	for _, kv := range e.Attributes {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}
