package processor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialExecutorRunsInOrder(t *testing.T) {
	e := NewSerialExecutor()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		require.NoError(t, e.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	e.Shutdown()
	require.NoError(t, e.Wait())

	require.Len(t, order, 50)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestPoolExecutorRunsConcurrently(t *testing.T) {
	e := NewPoolExecutor(2)

	// Each task waits for the other, so this only finishes when both run
	// at the same time.
	var barrier sync.WaitGroup
	barrier.Add(2)
	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		require.NoError(t, e.Submit(func() {
			barrier.Done()
			barrier.Wait()
			done <- struct{}{}
		}))
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("tasks did not run concurrently")
		}
	}
	e.Shutdown()
	require.NoError(t, e.Wait())
}

func TestExecutorRejectsAfterShutdown(t *testing.T) {
	e := NewSerialExecutor()
	e.Shutdown()
	assert.ErrorIs(t, e.Submit(func() {}), ErrExecutorShutdown)
	require.NoError(t, e.Wait())
}

func TestExecutorDrainsQueueOnShutdown(t *testing.T) {
	e := NewSerialExecutor()
	release := make(chan struct{})
	var mu sync.Mutex
	ran := 0

	require.NoError(t, e.Submit(func() { <-release }))
	for i := 0; i < 3; i++ {
		require.NoError(t, e.Submit(func() {
			mu.Lock()
			ran++
			mu.Unlock()
		}))
	}
	e.Shutdown()
	close(release)
	require.NoError(t, e.Wait())
	assert.Equal(t, 3, ran)
	assert.Equal(t, 0, e.Pending())
}

func TestExecutorSurvivesPanic(t *testing.T) {
	e := NewSerialExecutor()
	ran := make(chan struct{})

	require.NoError(t, e.Submit(func() { panic("boom") }))
	require.NoError(t, e.Submit(func() { close(ran) }))

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
	e.Shutdown()
	require.NoError(t, e.Wait())
}

func TestNewPoolExecutorClampsWorkers(t *testing.T) {
	e := NewPoolExecutor(0)
	done := make(chan struct{})
	require.NoError(t, e.Submit(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("task never ran")
	}
	e.Shutdown()
	require.NoError(t, e.Wait())
}
