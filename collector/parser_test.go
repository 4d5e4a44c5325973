package collector

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSleepingThread(t *testing.T) {
	raw := "\"worker-1\" #39 daemon prio=5 os_prio=0 cpu=1.25ms elapsed=4.21s tid=0x00007f2c nid=0xaa03 waiting on condition  [0x00007f2b]\n" +
		"   java.lang.Thread.State: TIMED_WAITING (sleeping)\n" +
		"\tat java.lang.Thread.sleep(Native Method)\n"

	trace := Parse(raw, 0)
	require.NotNil(t, trace)

	assert.Equal(t, "worker-1", trace.ThreadName)
	assert.Equal(t, int64(39), trace.ThreadID)
	assert.Equal(t, int64(0xaa03), trace.OSThreadID)
	require.NotNil(t, trace.ThreadState)
	assert.Equal(t, "TIMED_WAITING (sleeping)", *trace.ThreadState)
	assert.False(t, trace.Truncated)

	require.Len(t, trace.Frames, 1)
	assert.Equal(t, Frame{
		ClassAndMethod: "java.lang.Thread.sleep",
		Location:       "Native Method",
		Line:           -1,
	}, trace.Frames[0])
	assert.Equal(t, "java.lang.Thread", trace.Frames[0].ClassName())
	assert.Equal(t, "sleep", trace.Frames[0].MethodName())
}

func TestParseHeaderTokensAreIndependent(t *testing.T) {
	const state = "java.lang.Thread.State: RUNNABLE"

	tests := []struct {
		name   string
		header string
		id     int64
		nid    int64
	}{
		{"all tokens", `"pool-1" #12 prio=5 nid=0x1f4 runnable`, 12, 0x1f4},
		{"no id", `"GC Thread#0" os_prio=0 nid=0x1f4 runnable`, -1, 0x1f4},
		{"no nid", `"pool-1" #12 prio=5 runnable`, 12, -1},
		{"bad id", `"pool-1" #x1 prio=5 nid=0x1f4 runnable`, -1, 0x1f4},
		{"bad nid", `"pool-1" #12 prio=5 nid=0xzz runnable`, 12, -1},
		{"tokens at end of line", `"pool-1" nid=0x1f4 #12`, 12, 0x1f4},
		{"decimal nid", `"pool-1" #12 prio=5 nid=500 runnable`, 12, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trace := Parse(tt.header+"\n"+state, 0)
			require.NotNil(t, trace)
			assert.Equal(t, tt.id, trace.ThreadID)
			assert.Equal(t, tt.nid, trace.OSThreadID)
			assert.Equal(t, "RUNNABLE", trace.State())
		})
	}
}

func TestParseNameContainingQuotesAndHash(t *testing.T) {
	trace := Parse("\"say \"hi\" #5\" #7 nid=0x10\n", 0)
	assert.Nil(t, trace, "single line block must be rejected")

	trace = Parse("\"say \"hi\" #5\" #7 nid=0x10\n\n", 0)
	assert.Nil(t, trace, "trailing newlines do not count as lines")

	trace = Parse("\"say \"hi\" #5\" #7 nid=0x10\nstate unknown", 0)
	require.NotNil(t, trace)
	assert.Equal(t, `say "hi" #5`, trace.ThreadName)
	assert.Equal(t, int64(7), trace.ThreadID)
	assert.Equal(t, int64(0x10), trace.OSThreadID)
	assert.Nil(t, trace.ThreadState)
}

func TestParseUnquotedHeader(t *testing.T) {
	trace := Parse("Full thread dump OpenJDK 64-Bit Server VM:\nsomething else", 0)
	require.NotNil(t, trace)
	assert.Empty(t, trace.ThreadName)
	assert.Equal(t, int64(-1), trace.ThreadID)
	assert.Equal(t, int64(-1), trace.OSThreadID)
	assert.Empty(t, trace.Frames)
}

func TestParseTooShort(t *testing.T) {
	assert.Nil(t, Parse("", 10))
	assert.Nil(t, Parse(`"main" #1 nid=0x1`, 10))
}

func TestParseFrameShapes(t *testing.T) {
	raw := strings.Join([]string{
		`"main" #1 prio=5 nid=0x1 runnable`,
		"   java.lang.Thread.State: RUNNABLE",
		"\tat java.lang.Thread.run(java.base@11.0.9.1/Thread.java:834)",
		"\tat com.example.App.main(app//App.java:12)",
		"\tat com.example.Gen.invoke(Unknown Source)",
		"\tat com.example.Odd.call(Odd.java:notanumber)",
		"\t- locked <0x000000076ab62208> (a java.lang.Object)",
		"\tat missing.paren.Line",
		"  at not.tab.Prefixed(Foo.java:1)",
		"\tat com.example.Lambda.lambda$run$0(Lambda.java:3)",
	}, "\n")

	trace := Parse(raw, 0)
	require.NotNil(t, trace)
	assert.Equal(t, []Frame{
		{ClassAndMethod: "java.lang.Thread.run", Location: "Thread.java", Line: 834},
		{ClassAndMethod: "com.example.App.main", Location: "App.java", Line: 12},
		{ClassAndMethod: "com.example.Gen.invoke", Location: "Unknown Source", Line: -1},
		{ClassAndMethod: "com.example.Odd.call", Location: "Odd.java", Line: -1},
		{ClassAndMethod: "com.example.Lambda.lambda$run$0", Location: "Lambda.java", Line: 3},
	}, trace.Frames)
}

func TestParseWindowsLineEndings(t *testing.T) {
	raw := "\"main\" #1 nid=0x1 runnable\r\n   java.lang.Thread.State: RUNNABLE\r\n\tat a.B.c(B.java:1)\r\n"
	trace := Parse(raw, 0)
	require.NotNil(t, trace)
	assert.Equal(t, "RUNNABLE", trace.State())
	require.Len(t, trace.Frames, 1)
	assert.Equal(t, int64(1), trace.Frames[0].Line)
}

func stackWithFrames(n int) string {
	var b strings.Builder
	b.WriteString("\"deep\" #2 nid=0x2 runnable\n   java.lang.Thread.State: RUNNABLE\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "\tat com.example.Deep.f%d(Deep.java:%d)\n", i, i+1)
	}
	return b.String()
}

func TestParseTruncatesAtMaxDepth(t *testing.T) {
	for _, depth := range []int{1, 5, 64} {
		t.Run(fmt.Sprintf("depth_%d", depth), func(t *testing.T) {
			trace := Parse(stackWithFrames(depth+3), depth)
			require.NotNil(t, trace)
			assert.True(t, trace.Truncated)
			require.Len(t, trace.Frames, depth)
			assert.Equal(t, fmt.Sprintf("com.example.Deep.f%d", depth-1), trace.Frames[depth-1].ClassAndMethod)
		})
	}
}

func TestParseExactlyMaxDepthIsNotTruncated(t *testing.T) {
	trace := Parse(stackWithFrames(4), 4)
	require.NotNil(t, trace)
	assert.False(t, trace.Truncated)
	assert.Len(t, trace.Frames, 4)
}

func TestParseUnlimitedDepth(t *testing.T) {
	trace := Parse(stackWithFrames(500), 0)
	require.NotNil(t, trace)
	assert.False(t, trace.Truncated)
	assert.Len(t, trace.Frames, 500)
}
