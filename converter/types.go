package converter

import (
	"errors"
	"fmt"

	"github.com/google/pprof/profile"
)

// ErrUnsupportedFormat is returned when a profile is serialized to a
// format that is not a pprof encoding.
var ErrUnsupportedFormat = errors.New("unsupported data format")

// DataFormat names the encoding of an exported profile. The value is
// sent verbatim as the profiling.data.format attribute.
type DataFormat string

const (
	Text            DataFormat = "text"
	Pprof           DataFormat = "pprof"
	PprofGzip       DataFormat = "pprof-gzip"
	PprofBase64     DataFormat = "pprof-base64"
	PprofGzipBase64 DataFormat = "pprof-gzip-base64"
)

// ParseDataFormat validates a format name from configuration.
func ParseDataFormat(s string) (DataFormat, error) {
	switch f := DataFormat(s); f {
	case Text, Pprof, PprofGzip, PprofBase64, PprofGzipBase64:
		return f, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnsupportedFormat, s)
}

// IsPprof reports whether f is one of the binary profile encodings.
func (f DataFormat) IsPprof() bool {
	return f == Pprof || f == PprofGzip || f == PprofBase64 || f == PprofGzipBase64
}

// Compressed reports whether f is gzip compressed.
func (f DataFormat) Compressed() bool {
	return f == PprofGzip || f == PprofGzipBase64
}

// TextSafe reports whether f is safe to carry in a string body.
func (f DataFormat) TextSafe() bool {
	return f == Text || f == PprofBase64 || f == PprofGzipBase64
}

// CPUSampleTypes is the value layout of thread-dump samples: one count
// per observed stack.
func CPUSampleTypes() []*profile.ValueType {
	return []*profile.ValueType{
		{Type: "samples", Unit: "count"},
	}
}

// AllocationSampleTypes is the value layout of allocation samples.
func AllocationSampleTypes() []*profile.ValueType {
	return []*profile.ValueType{
		{Type: "allocationSize", Unit: "bytes"},
	}
}
