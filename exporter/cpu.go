package exporter

import (
	"fmt"
	"time"

	"jvmScope/collector"
	"jvmScope/converter"

	"go.opentelemetry.io/otel/trace"
)

// Event is one sampled thread stack.
type Event struct {
	// Stack is the already parsed stack. When nil, RawStack is parsed.
	Stack *collector.StackTrace
	// RawStack is the thread block text from a dump.
	RawStack string

	SourceEventName string
	Time            time.Time
	// SpanContext links the sample to the span active on the thread.
	// It is only recorded when valid.
	SpanContext trace.SpanContext
}

// CPUEventExporter accumulates stack samples and emits them on Flush.
// Flush is called once per dump or recording boundary, never on a timer.
type CPUEventExporter interface {
	Export(event Event)
	Flush() error
}

var (
	_ CPUEventExporter = (*PprofCPUExporter)(nil)
	_ CPUEventExporter = (*PlainTextCPUExporter)(nil)
)

// PprofCPUExporterConfig configures a PprofCPUExporter.
type PprofCPUExporterConfig struct {
	Processor  LogProcessor
	Format     converter.DataFormat  // One of the pprof formats
	Periods    *EventPeriods         // Optional
	StackDepth int                   // Frames kept per raw stack, <= 0 for all
	Source     InstrumentationSource // Defaults to Continuous
}

// PprofCPUExporter builds one pprof profile per window from thread
// stacks. It is not safe for concurrent use.
type PprofCPUExporter struct {
	builder    *converter.Builder
	format     converter.DataFormat
	periods    *EventPeriods
	stackDepth int
	logData    *LogDataExporter
}

// NewPprofCPUExporter returns an error if the format is not a pprof
// encoding.
func NewPprofCPUExporter(cfg PprofCPUExporterConfig) (*PprofCPUExporter, error) {
	if !cfg.Format.IsPprof() {
		return nil, fmt.Errorf("%w %q for pprof export", converter.ErrUnsupportedFormat, cfg.Format)
	}
	if cfg.Source == "" {
		cfg.Source = Continuous
	}
	if cfg.Periods == nil {
		cfg.Periods = NewEventPeriods(nil)
	}
	return &PprofCPUExporter{
		builder:    converter.NewBuilder(converter.CPUSampleTypes()...),
		format:     cfg.Format,
		periods:    cfg.Periods,
		stackDepth: cfg.StackDepth,
		logData:    NewLogDataExporter(cfg.Processor, CPU, cfg.Format, cfg.Source),
	}, nil
}

// Export adds one sample. Events whose stack is missing, unparsable or
// has no frames are skipped.
func (e *PprofCPUExporter) Export(event Event) {
	stack := event.Stack
	if stack == nil {
		stack = collector.Parse(event.RawStack, e.stackDepth)
	}
	if stack == nil || len(stack.Frames) == 0 {
		return
	}

	b := e.builder
	sample := b.NewSample(1)

	if stack.ThreadID != -1 {
		b.AddNumLabel(sample, string(ThreadIDKey), stack.ThreadID)
	}
	if stack.ThreadName != "" {
		b.AddLabel(sample, string(ThreadNameKey), stack.ThreadName)
	}
	if stack.OSThreadID != -1 {
		b.AddNumLabel(sample, string(ThreadOSIDKey), stack.OSThreadID)
	}
	if stack.ThreadState != nil {
		b.AddLabel(sample, string(ThreadStateKey), *stack.ThreadState)
	}
	b.AddBoolLabel(sample, string(ThreadStackTruncatedKey), stack.Truncated)

	for _, frame := range stack.Frames {
		b.AddLocation(sample, b.LocationID(frame.Location, frame.ClassAndMethod, frame.Line))
	}

	addEventLabels(b, sample, e.periods, event.SourceEventName, event.Time)
	addSpanLabels(b, sample, event.SpanContext)
	b.AddSample(sample)
}

// Flush serializes the window, hands it to the log processor and starts
// a new window. It does nothing when no sample was added. On error the
// window is discarded and the error returned.
func (e *PprofCPUExporter) Flush() error {
	if !e.builder.HasSamples() {
		return nil
	}
	defer e.builder.Reset()

	frameCount := e.builder.FrameCount()
	data, err := e.builder.Serialize(e.format)
	if err != nil {
		return fmt.Errorf("serializing cpu profile: %w", err)
	}
	e.logData.Export(data, frameCount)
	return nil
}
