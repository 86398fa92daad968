package workpool

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsAllSubmittedTasks(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	var counter atomic.Int64
	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			counter.Add(1)
		})
	}

	deadline := time.After(5 * time.Second)
	for {
		if pool.Snapshot().TasksCompleted >= 100 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for tasks, completed %d/100", pool.Snapshot().TasksCompleted)
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	if counter.Load() != 100 {
		t.Errorf("expected 100 tasks run, got %d", counter.Load())
	}
}

func TestSubmitAfterCloseReturnsFalse(t *testing.T) {
	pool := New(2)
	pool.Close()

	if pool.Submit(func() {}) {
		t.Fatalf("expected Submit to fail after Close")
	}
}

func TestWorkStealingUnderUnevenLoad(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	var counter atomic.Int64
	for i := 0; i < 100; i++ {
		i := i
		pool.Submit(func() {
			if i%10 == 0 {
				time.Sleep(10 * time.Millisecond)
			}
			counter.Add(1)
		})
	}

	time.Sleep(500 * time.Millisecond)

	snap := pool.Snapshot()
	if snap.TasksCompleted < 100 {
		t.Errorf("expected 100 tasks completed, got %d", snap.TasksCompleted)
	}
}
