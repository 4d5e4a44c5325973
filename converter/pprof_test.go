package converter

import (
	"encoding/base64"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationIDsAreStablePerWindow(t *testing.T) {
	b := NewBuilder(CPUSampleTypes()...)

	main := b.LocationID("App.java", "com.example.App.main", 12)
	run := b.LocationID("Thread.java", "java.lang.Thread.run", 834)
	assert.Equal(t, uint64(1), main)
	assert.Equal(t, uint64(2), run)
	assert.Equal(t, main, b.LocationID("App.java", "com.example.App.main", 12))

	// Same function on another line shares the function but not the location.
	other := b.LocationID("App.java", "com.example.App.main", 13)
	assert.Equal(t, uint64(3), other)
	require.Len(t, b.Profile().Function, 2)
	assert.Same(t, b.Profile().Location[0].Line[0].Function, b.Profile().Location[2].Line[0].Function)
}

func TestResetRestartsIDs(t *testing.T) {
	b := NewBuilder(CPUSampleTypes()...)
	b.LocationID("A.java", "a.A.f", 1)
	b.LocationID("B.java", "b.B.g", 2)
	sample := b.NewSample(1)
	b.AddLocation(sample, 2)
	b.AddSample(sample)
	_, err := b.Serialize(PprofGzipBase64)
	require.NoError(t, err)

	b.Reset()
	assert.False(t, b.HasSamples())
	assert.Equal(t, 0, b.FrameCount())
	assert.Empty(t, b.Profile().Function)
	assert.Equal(t, uint64(1), b.LocationID("B.java", "b.B.g", 2), "ids from the previous window must not leak")
	assert.Equal(t, uint64(1), b.Profile().Function[0].ID)
	assert.Equal(t, int64(1), b.stringID("b.B.g"), "string table restarts after the reserved empty string")
}

func TestInternedStringsSurviveEncoding(t *testing.T) {
	b := NewBuilder(CPUSampleTypes()...)
	b.stringID("unused")
	sample := b.NewSample(1)
	b.AddLocation(sample, b.LocationID("App.java", "com.example.App.main", 3))
	b.AddLabel(sample, "thread.name", "main")
	b.AddSample(sample)

	data, err := b.Serialize(Pprof)
	require.NoError(t, err)
	p, err := profile.ParseData(data)
	require.NoError(t, err)
	require.Len(t, p.Sample, 1)
	assert.Equal(t, []string{"main"}, p.Sample[0].Label["thread.name"])
	assert.Equal(t, "com.example.App.main", p.Function[0].Name)
	assert.Equal(t, "App.java", p.Function[0].Filename)
}

func TestStringTableReservesEmptyString(t *testing.T) {
	b := NewBuilder()
	assert.Equal(t, int64(0), b.stringID(""))
	assert.Equal(t, int64(1), b.stringID("thread.name"))
	assert.Equal(t, int64(2), b.stringID("main"))
	assert.Equal(t, int64(1), b.stringID("thread.name"))
}

func TestFrameCountCountsRepeats(t *testing.T) {
	b := NewBuilder(CPUSampleTypes()...)
	id := b.LocationID("A.java", "a.A.f", 1)
	for i := 0; i < 3; i++ {
		sample := b.NewSample(1)
		b.AddLocation(sample, id)
		b.AddLocation(sample, id)
		b.AddSample(sample)
	}
	assert.Equal(t, 6, b.FrameCount())
	assert.Equal(t, 3, b.SampleCount())
	assert.Len(t, b.Profile().Location, 1)
}

func buildSample(b *Builder) {
	sample := b.NewSample(1)
	b.AddLocation(sample, b.LocationID("Thread.java", "java.lang.Thread.sleep", -1))
	b.AddLocation(sample, b.LocationID("App.java", "com.example.App.main", 7))
	b.AddLabel(sample, "thread.name", "main")
	b.AddNumLabel(sample, "thread.id", 1)
	b.AddBoolLabel(sample, "thread.stack.truncated", false)
	b.AddLabel(sample, "", "ignored")
	b.AddSample(sample)
}

func TestSerializeFormats(t *testing.T) {
	tests := []struct {
		format  DataFormat
		base64  bool
		gzipped bool
	}{
		{Pprof, false, false},
		{PprofGzip, false, true},
		{PprofBase64, true, false},
		{PprofGzipBase64, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			b := NewBuilder(CPUSampleTypes()...)
			buildSample(b)

			data, err := b.Serialize(tt.format)
			require.NoError(t, err)

			if tt.base64 {
				data, err = base64.StdEncoding.DecodeString(string(data))
				require.NoError(t, err)
			}
			isGzip := len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b
			assert.Equal(t, tt.gzipped, isGzip)

			prof, err := profile.ParseData(data)
			require.NoError(t, err)
			require.Len(t, prof.Sample, 1)

			sample := prof.Sample[0]
			assert.Equal(t, []int64{1}, sample.Value)
			assert.Equal(t, []string{"main"}, sample.Label["thread.name"])
			assert.Equal(t, []string{"false"}, sample.Label["thread.stack.truncated"])
			assert.Equal(t, []int64{1}, sample.NumLabel["thread.id"])
			assert.NotContains(t, sample.Label, "")

			require.Len(t, sample.Location, 2)
			assert.Equal(t, "java.lang.Thread.sleep", sample.Location[0].Line[0].Function.Name)
			assert.Equal(t, "Thread.java", sample.Location[0].Line[0].Function.Filename)
			assert.Equal(t, int64(-1), sample.Location[0].Line[0].Line)
			assert.Equal(t, int64(7), sample.Location[1].Line[0].Line)
		})
	}
}

func TestSerializeRejectsText(t *testing.T) {
	b := NewBuilder()
	_, err := b.Serialize(Text)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSerializeReportsInvalidProfile(t *testing.T) {
	b := NewBuilder(CPUSampleTypes()...)
	b.AddSample(b.NewSample()) // missing the samples/count value
	_, err := b.Serialize(Pprof)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid profile")
}

func TestSerializeWindowsAreIndependent(t *testing.T) {
	b := NewBuilder(CPUSampleTypes()...)
	buildSample(b)
	first, err := b.Serialize(Pprof)
	require.NoError(t, err)
	b.Reset()

	sample := b.NewSample(1)
	b.AddLocation(sample, b.LocationID("Other.java", "com.example.Other.run", 3))
	b.AddSample(sample)
	second, err := b.Serialize(Pprof)
	require.NoError(t, err)

	p1, err := profile.ParseData(first)
	require.NoError(t, err)
	p2, err := profile.ParseData(second)
	require.NoError(t, err)
	assert.Len(t, p1.Location, 2)
	require.Len(t, p2.Location, 1)
	assert.Equal(t, uint64(1), p2.Location[0].ID)
	assert.Equal(t, "com.example.Other.run", p2.Location[0].Line[0].Function.Name)
}

func TestParseDataFormat(t *testing.T) {
	f, err := ParseDataFormat("pprof-gzip-base64")
	require.NoError(t, err)
	assert.Equal(t, PprofGzipBase64, f)
	assert.True(t, f.IsPprof())
	assert.True(t, f.TextSafe())

	f, err = ParseDataFormat("text")
	require.NoError(t, err)
	assert.False(t, f.IsPprof())

	_, err = ParseDataFormat("jfr")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
