package collector

import (
	"bufio"
	"strconv"
	"strings"
)

const (
	stackLinePrefix   = "\tat "
	threadStatePrefix = "java.lang.Thread.State: "
	nativeIDPrefix    = "nid="
)

// Parse converts one thread block of a JVM thread dump into a StackTrace.
// It returns nil when the block has fewer than two lines.
//
// Every header field is optional: a token that is missing or does not
// parse leaves only that field at its sentinel. Lines that are not
// "\tat pkg.Class.method(Location)" frames are skipped. When maxDepth is
// positive and a frame beyond maxDepth is found, the trace is marked
// truncated and the rest of the block is not read.
func Parse(raw string, maxDepth int) *StackTrace {
	raw = strings.TrimRight(raw, "\r\n")
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(nil, max(len(raw)+1, bufio.MaxScanTokenSize))

	if !scanner.Scan() {
		return nil
	}
	header := scanner.Text()
	if !scanner.Scan() {
		return nil
	}

	trace := &StackTrace{
		ThreadID:   -1,
		OSThreadID: -1,
	}
	parseHeader(trace, header)
	trace.ThreadState = parseThreadState(scanner.Text())

	for scanner.Scan() {
		frame, ok := parseFrame(scanner.Text())
		if !ok {
			continue
		}
		if maxDepth > 0 && len(trace.Frames) >= maxDepth {
			trace.Truncated = true
			break
		}
		trace.Frames = append(trace.Frames, frame)
	}

	return trace
}

// parseHeader reads a line such as
//
//	"worker-1" #39 daemon prio=5 os_prio=0 tid=0x00007f nid=0xaa03 waiting on condition
func parseHeader(trace *StackTrace, header string) {
	if !strings.HasPrefix(header, `"`) {
		return
	}
	nameEnd := strings.LastIndexByte(header, '"')
	if nameEnd == 0 {
		return
	}
	trace.ThreadName = header[1:nameEnd]
	rest := header[nameEnd+1:]

	// Some threads (GC, compiler) have no id.
	if token, ok := tokenAfter(rest, "#"); ok {
		if id, err := strconv.ParseInt(token, 10, 64); err == nil {
			trace.ThreadID = id
		}
	}

	// nid is hex up to JDK 18 and decimal from JDK 19.
	if token, ok := tokenAfter(rest, nativeIDPrefix); ok {
		var nid int64
		var err error
		if hex, found := strings.CutPrefix(token, "0x"); found {
			nid, err = strconv.ParseInt(hex, 16, 64)
		} else {
			nid, err = strconv.ParseInt(token, 10, 64)
		}
		if err == nil {
			trace.OSThreadID = nid
		}
	}
}

// tokenAfter returns the text following prefix up to the next space or
// the end of s.
func tokenAfter(s, prefix string) (string, bool) {
	i := strings.Index(s, prefix)
	if i == -1 {
		return "", false
	}
	s = s[i+len(prefix):]
	if end := strings.IndexByte(s, ' '); end != -1 {
		s = s[:end]
	}
	return s, true
}

func parseThreadState(line string) *string {
	i := strings.Index(line, threadStatePrefix)
	if i == -1 {
		return nil
	}
	state := line[i+len(threadStatePrefix):]
	return &state
}

// parseFrame reads a line such as
//
//	\tat java.lang.Thread.run(java.base@11.0.9.1/Thread.java:834)
func parseFrame(line string) (Frame, bool) {
	if !strings.HasPrefix(line, stackLinePrefix) || !strings.HasSuffix(line, ")") {
		return Frame{}, false
	}
	body := line[len(stackLinePrefix) : len(line)-1]
	open := strings.LastIndexByte(body, '(')
	if open == -1 {
		return Frame{}, false
	}

	location := body[open+1:]
	if i := strings.LastIndexByte(location, '/'); i != -1 {
		location = location[i+1:]
	}

	lineNumber := int64(-1)
	if i := strings.IndexByte(location, ':'); i != -1 {
		if n, err := strconv.ParseInt(location[i+1:], 10, 64); err == nil {
			lineNumber = n
		}
		location = location[:i]
	}

	return Frame{
		ClassAndMethod: body[:open],
		Location:       location,
		Line:           lineNumber,
	}, true
}
