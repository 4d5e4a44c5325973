package collector

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"jvmScope/clock"
	"jvmScope/config"

	log "github.com/sirupsen/logrus"
)

// New creates a new Jcmd instance with the provided configuration
func New(cfg *config.Config, clk clock.Clock) *Jcmd {
	return &Jcmd{
		config: cfg,
		clock:  clk,
		run:    runCommand,
		dumps:  make(chan *Dump, 1),
	}
}

// Start captures one thread dump immediately and then one every
// config.Interval until ctx is cancelled. The first capture runs before
// Start returns so that a missing jcmd binary or a wrong pid is reported
// to the caller. The returned channel is closed when collection stops.
func (j *Jcmd) Start(ctx context.Context) (<-chan *Dump, error) {
	first, err := j.capture(ctx)
	if err != nil {
		return nil, err
	}

	go func() {
		defer close(j.dumps)
		dump := first
		for {
			if dump != nil {
				select {
				case j.dumps <- dump:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-j.clock.After(j.config.Interval):
			}

			dump, err = j.capture(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Error capturing thread dump: %v", err)
			}
		}
	}()

	return j.dumps, nil
}

// capture runs "jcmd <pid> Thread.print" and splits its output.
func (j *Jcmd) capture(ctx context.Context) (*Dump, error) {
	timestamp := j.clock.Now()
	out, err := j.run(ctx, j.config.JcmdPath, j.config.PID, "Thread.print")
	if err != nil {
		return nil, fmt.Errorf("error running %s %s Thread.print: %w", j.config.JcmdPath, j.config.PID, err)
	}

	dump, err := ReadDump(bytes.NewReader(out))
	if err != nil {
		return nil, err
	}
	dump.Timestamp = timestamp

	log.WithFields(log.Fields{
		"pid":    j.config.PID,
		"blocks": len(dump.Blocks),
	}).Debug("Captured thread dump")
	return dump, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	log.Debugf("Starting process: %v", cmd.String())
	return cmd.Output()
}
