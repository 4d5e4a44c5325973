package exporter

import (
	"fmt"
	"time"

	"jvmScope/collector"
	"jvmScope/converter"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AllocationEvent is one sampled allocation.
type AllocationEvent struct {
	// Frames is the allocating stack, innermost first. A nil slice means
	// the stack was not recorded and the event is skipped. A frame with
	// an empty ClassAndMethod stands for an unresolved method.
	Frames []collector.Frame
	Size   int64 // Bytes allocated

	EventName   string
	Time        time.Time
	ThreadID    int64
	ThreadName  string
	SpanContext trace.SpanContext
}

// Sampler decides which allocation events are recorded and describes
// itself with labels attached to every sample it let through.
type Sampler interface {
	ShouldSample() bool
	Labels() []attribute.KeyValue
}

// PprofAllocationExporter builds one pprof profile per window from
// allocation events. It is not safe for concurrent use.
type PprofAllocationExporter struct {
	builder *converter.Builder
	format  converter.DataFormat
	periods *EventPeriods
	logData *LogDataExporter
}

// NewPprofAllocationExporter returns an error if format is not a pprof
// encoding.
func NewPprofAllocationExporter(processor LogProcessor, format converter.DataFormat, periods *EventPeriods) (*PprofAllocationExporter, error) {
	if !format.IsPprof() {
		return nil, fmt.Errorf("%w %q for pprof export", converter.ErrUnsupportedFormat, format)
	}
	if periods == nil {
		periods = NewEventPeriods(nil)
	}
	return &PprofAllocationExporter{
		builder: converter.NewBuilder(converter.AllocationSampleTypes()...),
		format:  format,
		periods: periods,
		logData: NewLogDataExporter(processor, Allocation, format, Continuous),
	}, nil
}

// Export adds one allocation sample. sampler may be nil.
func (e *PprofAllocationExporter) Export(event AllocationEvent, sampler Sampler) {
	if event.Frames == nil {
		return
	}

	b := e.builder
	sample := b.NewSample(event.Size)
	for _, frame := range event.Frames {
		var id uint64
		if frame.ClassAndMethod == "" {
			id = b.LocationID("", "unknown.unknown", -1)
		} else {
			file := frame.Location
			if file == "" {
				file = "unknown"
			}
			id = b.LocationID(file, frame.ClassAndMethod, frame.Line)
		}
		b.AddLocation(sample, id)
	}

	addEventLabels(b, sample, e.periods, event.EventName, event.Time)
	b.AddNumLabel(sample, string(ThreadIDKey), event.ThreadID)
	b.AddLabel(sample, string(ThreadNameKey), event.ThreadName)
	addSpanLabels(b, sample, event.SpanContext)
	if sampler != nil {
		addAttributeLabels(b, sample, sampler.Labels())
	}
	b.AddSample(sample)
}

// Flush serializes the window and starts a new one. It does nothing
// when no sample was added.
func (e *PprofAllocationExporter) Flush() error {
	if !e.builder.HasSamples() {
		return nil
	}
	defer e.builder.Reset()

	frameCount := e.builder.FrameCount()
	data, err := e.builder.Serialize(e.format)
	if err != nil {
		return fmt.Errorf("serializing allocation profile: %w", err)
	}
	e.logData.Export(data, frameCount)
	return nil
}
