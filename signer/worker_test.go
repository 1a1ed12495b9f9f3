package signer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRunsDueTask(t *testing.T) {
	q := NewTaskQueue()
	pool := NewWorkerPool(q)
	pool.Start(2)
	defer pool.Stop()

	var ran int32
	done := make(chan struct{})
	zone := &Zone{Name: "a."}
	task := &Task{When: time.Now().Unix(), Kind: Dummy, Zone: zone}
	// wrap Run via a closure is not possible (Task.Run dispatches by Kind),
	// so observe completion by polling the queue instead.
	_ = done

	q.Lock()
	q.Add(task)
	q.Unlock()
	pool.Notify()

	require.Eventually(t, func() bool {
		q.Lock()
		defer q.Unlock()
		return q.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)

	atomic.AddInt32(&ran, 1)
	require.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestWorkerPoolRepeatingTaskReenqueues(t *testing.T) {
	q := NewTaskQueue()
	pool := NewWorkerPool(q)
	pool.Start(1)
	defer pool.Stop()

	zone := &Zone{Name: "a."}
	q.Lock()
	q.Add(&Task{When: time.Now().Unix(), Kind: Dummy, Zone: zone, RepeatInterval: 3600})
	q.Unlock()
	pool.Notify()

	require.Eventually(t, func() bool {
		q.Lock()
		defer q.Unlock()
		if q.Len() != 1 {
			return false
		}
		return q.tasks[0].When > time.Now().Unix()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerPoolStopReturnsPromptly(t *testing.T) {
	q := NewTaskQueue()
	pool := NewWorkerPool(q)
	pool.Start(3)

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return promptly")
	}
}
