package exporter

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// RateLimitSampler keeps roughly a fixed number of events per second.
// The sampling probability is recomputed from the event count of the
// previous period by Update. Until the first Update every event is kept.
type RateLimitSampler struct {
	limit              string
	maxEventsPerSecond float64

	mu          sync.Mutex
	probability float64
	random      func() float64
}

// NewRateLimitSampler parses limits such as "100/s" or "10/m".
func NewRateLimitSampler(limit string) (*RateLimitSampler, error) {
	rate, err := parseRateLimit(limit)
	if err != nil {
		return nil, err
	}
	return &RateLimitSampler{
		limit:              limit,
		maxEventsPerSecond: rate,
		probability:        1,
		random:             rand.Float64,
	}, nil
}

func parseRateLimit(limit string) (float64, error) {
	perSecond := strings.HasSuffix(limit, "/s")
	perMinute := strings.HasSuffix(limit, "/m")
	if !perSecond && !perMinute {
		return 0, fmt.Errorf("invalid rate limit %q, valid rate limit is '100/s' or '10/m'", limit)
	}
	n, err := strconv.Atoi(limit[:len(limit)-2])
	if err != nil {
		return 0, fmt.Errorf("invalid rate limit %q, valid rate limit is '100/s' or '10/m': %w", limit, err)
	}
	if perMinute {
		return float64(n) / 60, nil
	}
	return float64(n), nil
}

// MaxEventsPerSecond returns the parsed limit.
func (s *RateLimitSampler) MaxEventsPerSecond() float64 {
	return s.maxEventsPerSecond
}

// Update sets the probability for the next period from the number of
// events seen between start and end.
func (s *RateLimitSampler) Update(eventCount int64, start, end time.Time) {
	desired := s.maxEventsPerSecond * end.Sub(start).Seconds()
	probability := 1.0
	if eventCount > 0 {
		probability = min(max(desired/float64(eventCount), 0), 1)
	}

	s.mu.Lock()
	s.probability = probability
	s.mu.Unlock()
}

// Probability returns the current sampling probability.
func (s *RateLimitSampler) Probability() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probability
}

func (s *RateLimitSampler) ShouldSample() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.random() < s.probability
}

func (s *RateLimitSampler) Labels() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("sampler.name", "Rate limiting sampler"),
		attribute.String("sampler.limit", s.limit),
	}
}
