package config

import (
	"errors"
	"fmt"
	"time"
)

// Config contains all the configuration for the application
type Config struct {
	// Core settings
	Endpoint    string
	AuthToken   string
	ServiceName string
	Tags        map[string]string
	Debug       bool
	MetricsAddr string

	// Collection settings
	PID        string
	JcmdPath   string
	InputPath  string
	Interval   time.Duration
	StackDepth int

	// IncludeInternalStacks keeps JVM housekeeping threads and stacks made
	// only of JDK frames.
	IncludeInternalStacks bool

	// Export settings
	DataFormat            string
	MaxBatchSize          int
	MaxTimeBetweenBatches time.Duration
	ConcurrentLimit       int
	EventPeriodsPath      string
}

// NewDefault returns a new default config
func NewDefault() *Config {
	return &Config{
		ServiceName:           "unknown_service:java",
		JcmdPath:              "jcmd",
		Interval:              10 * time.Second,
		StackDepth:            1024,
		DataFormat:            "pprof-gzip-base64",
		MaxBatchSize:          100,
		MaxTimeBetweenBatches: 10 * time.Second,
		ConcurrentLimit:       1,
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if c.PID == "" && c.InputPath == "" {
		return errors.New("either a pid or an input file is required")
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.MaxBatchSize)
	}
	if c.MaxTimeBetweenBatches <= 0 {
		return fmt.Errorf("batch interval must be positive, got %v", c.MaxTimeBetweenBatches)
	}
	if c.ConcurrentLimit <= 0 {
		return fmt.Errorf("concurrent limit must be positive, got %d", c.ConcurrentLimit)
	}
	if c.PID != "" && c.Interval <= 0 {
		return fmt.Errorf("dump interval must be positive, got %v", c.Interval)
	}
	return nil
}
