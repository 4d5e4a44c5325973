// Package processor batches records by size or time and hands completed
// batches to an action running on a background executor.
package processor

import (
	"errors"
	"sync"
	"time"

	"jvmScope/clock"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrAlreadyRunning is returned by Start on a running processor.
	ErrAlreadyRunning = errors.New("processor already running")
	// ErrNotRunning is returned by Stop on a stopped processor.
	ErrNotRunning = errors.New("processor not running")
)

const (
	DefaultMaxBatchSize          = 100
	DefaultMaxTimeBetweenBatches = 10 * time.Second
)

// Config holds the configuration for a batching processor
type Config struct {
	Name                  string        // Value of the "processor" metrics label and log field
	MaxBatchSize          int           // Entries that trigger an immediate flush
	MaxTimeBetweenBatches time.Duration // Idle time that triggers a flush of a partial batch
	Executor              Executor      // Runs the batch action; defaults to a serial executor
	Clock                 clock.Clock   // Defaults to the real clock
	Metrics               *Metrics      // Optional
}

// Batching collects entries and hands them to the action in batches,
// either when MaxBatchSize entries have accumulated or when
// MaxTimeBetweenBatches passes without a flush.
//
// Log never waits for the action: the batch is swapped out under the
// lock and the action runs on the executor. Action errors and panics
// are logged and counted, never retried.
type Batching[T any] struct {
	config   Config
	action   func([]T) error
	executor Executor

	mu       sync.Mutex
	batch    []T
	running  bool
	watchdog *Watchdog
}

// New creates a stopped processor.
func New[T any](config Config, action func([]T) error) *Batching[T] {
	if config.Name == "" {
		config.Name = "default"
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = DefaultMaxBatchSize
	}
	if config.MaxTimeBetweenBatches <= 0 {
		config.MaxTimeBetweenBatches = DefaultMaxTimeBetweenBatches
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	executor := config.Executor
	if executor == nil {
		executor = NewSerialExecutor()
	}
	return &Batching[T]{
		config:   config,
		action:   action,
		executor: executor,
		batch:    make([]T, 0, config.MaxBatchSize),
	}
}

// Start arms the time trigger.
func (p *Batching[T]) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}

	watchdog, err := NewWatchdog(p.config.Clock, p.config.MaxTimeBetweenBatches, p.flushOnTimer)
	if err != nil {
		return err
	}
	if err := watchdog.Start(); err != nil {
		return err
	}
	p.watchdog = watchdog
	p.running = true
	return nil
}

// Stop cancels the time trigger and flushes whatever has accumulated.
// It does not wait for the action; shut the executor down and Wait on
// it for that. Entries logged after Stop are only flushed by size.
func (p *Batching[T]) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return ErrNotRunning
	}
	p.running = false

	err := p.watchdog.Stop()
	p.watchdog = nil
	p.flushLocked(triggerStop)
	return err
}

// Log appends entry to the current batch and flushes it when it is full.
func (p *Batching[T]) Log(entry T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.batch = append(p.batch, entry)
	if len(p.batch) < p.config.MaxBatchSize {
		return
	}

	p.flushLocked(triggerSize)
	if p.running {
		// A size flush restarts the idle period; otherwise the timer
		// would flush a near-empty batch right after.
		if err := p.watchdog.Reset(); err != nil {
			log.WithField("processor", p.config.Name).Errorf("Error resetting watchdog: %v", err)
		}
	}
}

// Len returns the number of entries waiting for the next flush.
func (p *Batching[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batch)
}

// Running reports whether Start has been called without a matching Stop.
func (p *Batching[T]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Executor returns the executor running the batch action.
func (p *Batching[T]) Executor() Executor {
	return p.executor
}

// Shutdown stops the executor from accepting batches and waits for the
// queued ones to finish.
func (p *Batching[T]) Shutdown() error {
	p.executor.Shutdown()
	return p.executor.Wait()
}

func (p *Batching[T]) flushOnTimer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.flushLocked(triggerTime)
}

// flushLocked hands the current batch to the executor. Submitting under
// the lock keeps batches in the order they were cut.
func (p *Batching[T]) flushLocked(trigger string) {
	if len(p.batch) == 0 {
		return
	}
	snapshot := p.batch
	p.batch = make([]T, 0, p.config.MaxBatchSize)

	logger := log.WithFields(log.Fields{
		"processor": p.config.Name,
		"trigger":   trigger,
		"entries":   len(snapshot),
	})
	if err := p.executor.Submit(func() { p.processBatch(snapshot) }); err != nil {
		logger.Errorf("Dropping batch: %v", err)
		p.config.Metrics.failed(p.config.Name)
		return
	}
	p.config.Metrics.flushed(p.config.Name, trigger, len(snapshot))
	logger.Debug("Batch submitted")
}

// processBatch runs the action against one snapshot.
func (p *Batching[T]) processBatch(batch []T) {
	logger := log.WithFields(log.Fields{
		"processor": p.config.Name,
		"entries":   len(batch),
	})
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Batch action panicked: %v", r)
			p.config.Metrics.failed(p.config.Name)
		}
	}()

	if err := p.action(batch); err != nil {
		logger.Errorf("Error processing batch: %v", err)
		p.config.Metrics.failed(p.config.Name)
	}
}
