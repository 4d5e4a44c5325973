package collector

import (
	"context"
	"strings"
	"time"

	"jvmScope/clock"
	"jvmScope/config"
)

// Jcmd periodically captures thread dumps from a running JVM.
type Jcmd struct {
	config *config.Config
	clock  clock.Clock
	run    func(ctx context.Context, name string, args ...string) ([]byte, error)
	dumps  chan *Dump
}

// Dump is one captured thread dump split into per-thread blocks.
type Dump struct {
	Blocks    []string  // Raw text of each thread block, in dump order
	Timestamp time.Time // When the dump was captured
}

// Frame is one "\tat ..." line of a thread stack.
type Frame struct {
	ClassAndMethod string // Fully qualified class name and method, dot separated
	Location       string // Source file, "Native Method" or "Unknown Source"
	Line           int64  // Line number, -1 when unknown
}

// ClassName returns the part of ClassAndMethod before the last dot.
func (f Frame) ClassName() string {
	if i := strings.LastIndexByte(f.ClassAndMethod, '.'); i != -1 {
		return f.ClassAndMethod[:i]
	}
	return ""
}

// MethodName returns the part of ClassAndMethod after the last dot.
func (f Frame) MethodName() string {
	return f.ClassAndMethod[strings.LastIndexByte(f.ClassAndMethod, '.')+1:]
}

// StackTrace is a parsed thread block. It is not modified after Parse
// returns it.
type StackTrace struct {
	ThreadID    int64   // Java thread id from "#<id>", -1 when absent
	ThreadName  string  // Quoted thread name from the header
	OSThreadID  int64   // Native id from "nid=0x<hex>", -1 when absent
	ThreadState *string // Text after "java.lang.Thread.State: ", nil when absent
	Frames      []Frame // Innermost frame first
	Truncated   bool    // More frames existed than the configured depth
}

// State returns the thread state or "" when it was absent.
func (s *StackTrace) State() string {
	if s.ThreadState == nil {
		return ""
	}
	return *s.ThreadState
}
