package exporter

import (
	"testing"
	"time"

	"jvmScope/collector"
	"jvmScope/converter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocationExport(t *testing.T) {
	r := &recorder{}
	periods := NewEventPeriods(Settings{"jdk.ObjectAllocationSample#period": "20 ms"}.Lookup)
	e, err := NewPprofAllocationExporter(r, converter.PprofGzipBase64, periods)
	require.NoError(t, err)

	sampler, err := NewRateLimitSampler("100/s")
	require.NoError(t, err)

	e.Export(AllocationEvent{
		Frames: []collector.Frame{
			{ClassAndMethod: "com.example.Cache.grow", Line: 88},
			{},
		},
		Size:       4096,
		EventName:  "jdk.ObjectAllocationSample",
		Time:       time.UnixMilli(1700000000000),
		ThreadID:   21,
		ThreadName: "http-nio-8080-exec-1",
	}, sampler)
	require.NoError(t, e.Flush())
	require.Len(t, r.entries, 1)

	entry := r.entries[0]
	assert.Equal(t, "allocation", attr(t, entry, DataTypeKey).AsString())
	assert.Equal(t, int64(2), attr(t, entry, FrameCountKey).AsInt64())

	prof := decodeProfile(t, entry)
	require.Len(t, prof.SampleType, 1)
	assert.Equal(t, "allocationSize", prof.SampleType[0].Type)
	assert.Equal(t, "bytes", prof.SampleType[0].Unit)

	require.Len(t, prof.Sample, 1)
	sample := prof.Sample[0]
	assert.Equal(t, []int64{4096}, sample.Value)
	assert.Equal(t, []int64{21}, sample.NumLabel["thread.id"])
	assert.Equal(t, []string{"http-nio-8080-exec-1"}, sample.Label["thread.name"])
	assert.Equal(t, []int64{20}, sample.NumLabel["source.event.period"])
	assert.Equal(t, []string{"Rate limiting sampler"}, sample.Label["sampler.name"])
	assert.Equal(t, []string{"100/s"}, sample.Label["sampler.limit"])

	require.Len(t, sample.Location, 2)
	known := sample.Location[0].Line[0]
	assert.Equal(t, "com.example.Cache.grow", known.Function.Name)
	assert.Equal(t, "unknown", known.Function.Filename)
	assert.Equal(t, int64(88), known.Line)
	assert.Equal(t, "unknown.unknown", sample.Location[1].Line[0].Function.Name)
}

func TestAllocationSkipsMissingStack(t *testing.T) {
	r := &recorder{}
	e, err := NewPprofAllocationExporter(r, converter.Pprof, nil)
	require.NoError(t, err)

	e.Export(AllocationEvent{Size: 10}, nil)
	require.NoError(t, e.Flush())
	assert.Empty(t, r.entries)
}

func TestAllocationRejectsText(t *testing.T) {
	_, err := NewPprofAllocationExporter(&recorder{}, converter.Text, nil)
	assert.ErrorIs(t, err, converter.ErrUnsupportedFormat)
}
