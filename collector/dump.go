package collector

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// SplitBlocks reads a full thread dump and calls fn with the raw text of
// each blank-line separated block, in order. Blocks that are not thread
// stacks (the dump banner, "JNI global refs" and so on) are passed
// through too.
func SplitBlocks(r io.Reader, fn func(block string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var current []string
	emit := func() error {
		if len(current) == 0 {
			return nil
		}
		block := strings.Join(current, "\n")
		current = current[:0]
		return fn(block)
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \r")

		// Empty line marks the end of the current block
		if strings.TrimSpace(line) == "" {
			if err := emit(); err != nil {
				return err
			}
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading thread dump: %w", err)
	}
	return emit()
}

// ReadDump splits r into blocks and returns the thread sections, the
// blocks that start with a quoted thread name, as a Dump.
func ReadDump(r io.Reader) (*Dump, error) {
	dump := &Dump{}
	err := SplitBlocks(r, func(block string) error {
		if strings.HasPrefix(block, `"`) {
			dump.Blocks = append(dump.Blocks, block)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dump, nil
}
