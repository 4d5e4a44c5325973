package exporter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EventPeriods resolves the sampling period of a source event from the
// "<event>#period" setting. Every answer, including "unknown", is cached
// so the lookup runs once per event name.
type EventPeriods struct {
	lookup func(key string) (string, bool)

	mu    sync.Mutex
	cache map[string]period
}

type period struct {
	d     time.Duration
	known bool
}

// NewEventPeriods creates an EventPeriods backed by lookup.
func NewEventPeriods(lookup func(key string) (string, bool)) *EventPeriods {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	return &EventPeriods{
		lookup: lookup,
		cache:  make(map[string]period),
	}
}

// Duration returns the configured period of event. ok is false when the
// setting is missing, is "everyChunk", or does not parse.
func (e *EventPeriods) Duration(event string) (d time.Duration, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, cached := e.cache[event]; cached {
		return p.d, p.known
	}

	var p period
	if value, found := e.lookup(event + "#period"); found {
		p.d, p.known = parsePeriod(value)
		if !p.known {
			log.Debugf("Unknown period %q for event %s", value, event)
		}
	}
	e.cache[event] = p
	return p.d, p.known
}

var periodUnits = map[string]time.Duration{
	"ns": time.Nanosecond,
	"us": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
}

// parsePeriod accepts JFR style "20 ms" as well as Go style "20ms".
func parsePeriod(value string) (time.Duration, bool) {
	fields := strings.Fields(value)
	switch len(fields) {
	case 1:
		d, err := time.ParseDuration(fields[0])
		if err != nil {
			return 0, false
		}
		return d, true
	case 2:
		n, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return 0, false
		}
		unit, ok := periodUnits[fields[1]]
		if !ok {
			return 0, false
		}
		return time.Duration(n) * unit, true
	}
	return 0, false
}

// Settings holds event settings keyed "<event>#<setting>".
type Settings map[string]string

// Lookup implements the lookup function of NewEventPeriods.
func (s Settings) Lookup(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// ReadSettings decodes a YAML document of the form
//
//	jdk.ThreadDump:
//	  period: 10 s
//	jdk.ObjectAllocationSample:
//	  throttle: 150/s
func ReadSettings(r io.Reader) (Settings, error) {
	var events map[string]map[string]string
	if err := yaml.NewDecoder(r).Decode(&events); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding event settings: %w", err)
	}

	settings := make(Settings)
	for event, values := range events {
		for name, value := range values {
			settings[event+"#"+name] = value
		}
	}
	return settings, nil
}

// LoadSettings reads event settings from a YAML file.
func LoadSettings(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening event settings: %w", err)
	}
	defer f.Close()
	return ReadSettings(f)
}
