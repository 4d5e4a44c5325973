package processor

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrExecutorShutdown is returned by Submit after Shutdown.
var ErrExecutorShutdown = errors.New("executor is shut down")

// Executor runs batch actions off the producer's goroutine.
type Executor interface {
	// Submit queues task and returns without waiting for it to run.
	Submit(task func()) error
	// Shutdown stops accepting tasks. Queued tasks still run.
	Shutdown()
	// Wait blocks until every queued task has finished. It must be
	// called after Shutdown.
	Wait() error
}

// PoolExecutor runs queued tasks on a fixed number of workers. The queue
// is unbounded, so Submit never blocks. With one worker, tasks run in
// submission order.
type PoolExecutor struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool

	group *errgroup.Group
}

// NewSerialExecutor returns the default executor: one worker, FIFO.
func NewSerialExecutor() *PoolExecutor {
	return NewPoolExecutor(1)
}

// NewPoolExecutor starts workers goroutines. Values below 1 are treated
// as 1.
func NewPoolExecutor(workers int) *PoolExecutor {
	if workers < 1 {
		workers = 1
	}
	e := &PoolExecutor{group: new(errgroup.Group)}
	e.cond = sync.NewCond(&e.mu)
	for i := 0; i < workers; i++ {
		e.group.Go(e.work)
	}
	return e
}

func (e *PoolExecutor) Submit(task func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrExecutorShutdown
	}
	e.queue = append(e.queue, task)
	e.cond.Signal()
	return nil
}

func (e *PoolExecutor) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.cond.Broadcast()
}

func (e *PoolExecutor) Wait() error {
	return e.group.Wait()
}

// Pending returns the number of tasks waiting for a worker.
func (e *PoolExecutor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *PoolExecutor) work() error {
	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.cond.Wait()
		}
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return nil
		}
		task := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()

		run(task)
	}
}

// run keeps a panicking task from taking the worker down with it.
func run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Executor task panicked: %v", r)
		}
	}()
	task()
}
