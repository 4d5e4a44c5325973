package collector

import "strings"

// internalThreads are the name prefixes of JVM housekeeping and exporter
// threads. Their stacks say nothing about the application.
var internalThreads = []string{
	`"Batched Logs Exporter"`,
	`"BatchSpanProcessor_WorkerThread-`,
	`"JFR Recorder Thread"`,
	`"JFR Periodic Tasks"`,
	`"JFR Recording Scheduler"`,
	`"JFR Recording Sequencer"`,
	`"Reference Handler"`,
	`"Finalizer"`,
	`"C1 CompilerThread`,
	`"Common-Cleaner"`,
}

// internalFrames are the line prefixes of frames that belong to the JDK.
// Lock lines ("\t- locked ...") count as internal.
var internalFrames = []string{
	"\t-",
	"\tat java.",
	"\tat jdk.",
	"\tat sun.",
}

// Filter decides which thread blocks of a dump are worth exporting.
type Filter struct {
	// IncludeInternals keeps housekeeping threads and stacks made only of
	// JDK frames. Blocks that are not stacks at all are still dropped.
	IncludeInternals bool
}

// Keep reports whether block is a thread stack that should be exported.
// A stack has a quoted thread name, a state line and at least one more
// line.
func (f Filter) Keep(block string) bool {
	if !strings.HasPrefix(block, `"`) {
		return false
	}
	lines := strings.Split(block, "\n")
	if len(lines) < 3 {
		return false
	}
	if f.IncludeInternals {
		return true
	}
	for _, prefix := range internalThreads {
		if strings.HasPrefix(block, prefix) {
			return false
		}
	}
	return !allInternal(lines[2:])
}

func allInternal(frames []string) bool {
	for _, frame := range frames {
		if !hasAnyPrefix(frame, internalFrames) {
			return false
		}
	}
	return true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
