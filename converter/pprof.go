package converter

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/google/pprof/profile"
	"github.com/klauspost/compress/gzip"
)

var gzipWriterPool = sync.Pool{
	New: func() any {
		return gzip.NewWriter(io.Discard)
	},
}

type functionKey struct {
	file string
	name string
}

type locationKey struct {
	functionID uint64
	line       int64
}

// Builder accumulates samples into one pprof profile window. Strings,
// functions and locations are interned: the same input always maps to
// the same id until Reset, and ids are assigned first-seen from 1.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	sampleTypes []*profile.ValueType

	prof        *profile.Profile
	strings     map[string]int64
	stringTable []string
	functions   map[functionKey]*profile.Function
	locations   map[locationKey]*profile.Location
	frameCount  int
}

// NewBuilder creates an empty Builder whose samples carry one value per
// sample type.
func NewBuilder(sampleTypes ...*profile.ValueType) *Builder {
	b := &Builder{sampleTypes: sampleTypes}
	b.Reset()
	return b
}

// Reset discards every table and sample. Ids handed out before Reset
// must not be used afterwards.
func (b *Builder) Reset() {
	sampleTypes := make([]*profile.ValueType, len(b.sampleTypes))
	for i, st := range b.sampleTypes {
		copied := *st
		sampleTypes[i] = &copied
	}
	b.prof = &profile.Profile{SampleType: sampleTypes}
	b.strings = map[string]int64{"": 0} // 0 is reserved for the empty string
	b.stringTable = []string{""}
	b.functions = make(map[functionKey]*profile.Function)
	b.locations = make(map[locationKey]*profile.Location)
	b.frameCount = 0
}

// stringID interns s and returns its index in the builder's own table.
// The index is local to the builder: profile.Write lays out a fresh
// string table when encoding.
func (b *Builder) stringID(s string) int64 {
	if id, ok := b.strings[s]; ok {
		return id
	}
	id := int64(len(b.stringTable))
	b.strings[s] = id
	b.stringTable = append(b.stringTable, s)
	return id
}

// intern returns the canonical copy of s held by the string table.
func (b *Builder) intern(s string) string {
	return b.stringTable[b.stringID(s)]
}

func (b *Builder) function(file, name string) *profile.Function {
	key := functionKey{file: file, name: name}
	if fn, ok := b.functions[key]; ok {
		return fn
	}
	fn := &profile.Function{
		ID:         uint64(len(b.prof.Function) + 1),
		Name:       b.intern(name),
		SystemName: b.intern(name),
		Filename:   b.intern(file),
	}
	b.functions[key] = fn
	b.prof.Function = append(b.prof.Function, fn)
	return fn
}

// LocationID interns the (function, line) pair for a frame and returns
// its location id. classAndMethod is the fully qualified method name.
func (b *Builder) LocationID(file, classAndMethod string, line int64) uint64 {
	fn := b.function(file, classAndMethod)
	key := locationKey{functionID: fn.ID, line: line}
	if loc, ok := b.locations[key]; ok {
		return loc.ID
	}
	loc := &profile.Location{
		ID: uint64(len(b.prof.Location) + 1),
		Line: []profile.Line{
			{Function: fn, Line: line},
		},
	}
	b.locations[key] = loc
	b.prof.Location = append(b.prof.Location, loc)
	return loc.ID
}

// NewSample returns a sample with no locations or labels. It becomes
// part of the profile only after AddSample.
func (b *Builder) NewSample(values ...int64) *profile.Sample {
	return &profile.Sample{Value: values}
}

// AddLocation appends a location id, obtained from LocationID in the
// current window, to the sample's stack.
func (b *Builder) AddLocation(sample *profile.Sample, id uint64) {
	sample.Location = append(sample.Location, b.prof.Location[id-1])
	b.frameCount++
}

// AddLabel attaches a string label.
func (b *Builder) AddLabel(sample *profile.Sample, key, value string) {
	if key == "" {
		return
	}
	if sample.Label == nil {
		sample.Label = make(map[string][]string)
	}
	key = b.intern(key)
	sample.Label[key] = append(sample.Label[key], b.intern(value))
}

// AddNumLabel attaches a numeric label.
func (b *Builder) AddNumLabel(sample *profile.Sample, key string, value int64) {
	if key == "" {
		return
	}
	if sample.NumLabel == nil {
		sample.NumLabel = make(map[string][]int64)
	}
	key = b.intern(key)
	sample.NumLabel[key] = append(sample.NumLabel[key], value)
}

// AddBoolLabel attaches a boolean label, encoded as "true" or "false".
func (b *Builder) AddBoolLabel(sample *profile.Sample, key string, value bool) {
	b.AddLabel(sample, key, strconv.FormatBool(value))
}

// AddSample appends sample to the profile.
func (b *Builder) AddSample(sample *profile.Sample) {
	b.prof.Sample = append(b.prof.Sample, sample)
}

// HasSamples reports whether anything was added since the last Reset.
func (b *Builder) HasSamples() bool {
	return len(b.prof.Sample) > 0
}

// SampleCount returns the number of samples in the current window.
func (b *Builder) SampleCount() int {
	return len(b.prof.Sample)
}

// FrameCount returns the number of stack frames added in the current
// window, counting repeated frames every time.
func (b *Builder) FrameCount() int {
	return b.frameCount
}

// Profile returns the profile being built. Callers must not keep it
// past the next Reset.
func (b *Builder) Profile() *profile.Profile {
	return b.prof
}

// Serialize encodes everything accumulated since the last Reset. The
// caller is expected to Reset afterwards to start the next window.
func (b *Builder) Serialize(format DataFormat) ([]byte, error) {
	if !format.IsPprof() {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, format)
	}
	if err := b.prof.CheckValid(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	var raw bytes.Buffer
	if err := b.prof.WriteUncompressed(&raw); err != nil {
		return nil, fmt.Errorf("writing profile: %w", err)
	}
	data := raw.Bytes()

	if format.Compressed() {
		var compressed bytes.Buffer
		if err := writeGzip(&compressed, data); err != nil {
			return nil, err
		}
		data = compressed.Bytes()
	}

	if format.TextSafe() {
		encoded := make([]byte, base64.StdEncoding.EncodedLen(len(data)))
		base64.StdEncoding.Encode(encoded, data)
		data = encoded
	}
	return data, nil
}

func writeGzip(w io.Writer, data []byte) error {
	gzipWriter := gzipWriterPool.Get().(*gzip.Writer)
	gzipWriter.Reset(w)
	defer func() {
		gzipWriter.Reset(io.Discard)
		gzipWriterPool.Put(gzipWriter)
	}()

	if _, err := gzipWriter.Write(data); err != nil {
		return fmt.Errorf("gzip write: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("gzip close: %w", err)
	}
	return nil
}
