// Package workpool implements an optional work-stealing goroutine pool for
// handler work a connection driver should never block on directly — long
// database calls, CPU-heavy encoding, anything that would stall a
// reactor's single goroutine and every other connection it owns.
//
// No SPEC_FULL.md operation constructs or calls into a Pool implicitly:
// offloading blocking handler work is explicitly out of scope for the
// connection driver itself, per spec.md §5. A handler that needs it
// constructs its own Pool and calls Submit, the same opt-in shape the
// teacher's core/pools.WorkerPool offers through GetGlobalPool/SubmitTask.
package workpool

import (
	"runtime"
	"sync/atomic"
)

// Task is a unit of offloaded work.
type Task func()

// Pool is a fixed-size work-stealing goroutine pool: each worker drains its
// own queue first, then scans its siblings in fixed order, starting with
// the next worker, for one to steal from before blocking, generalized from the teacher's core/pools/worker_pool.go
// WorkerPool with the same per-worker buffered-channel-as-queue design and
// round-robin submission, adapted to Ember's naming and trimmed of the
// teacher's global-singleton (GetGlobalPool/SubmitTask) convenience API
// since Ember never reaches for offload work implicitly.
type Pool struct {
	queues  []chan Task
	closed  atomic.Bool
	submits atomic.Uint64

	stats stats
}

type stats struct {
	completed     atomic.Uint64
	stealsSuccess atomic.Uint64
	stealsFailed  atomic.Uint64
}

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	Workers        int
	TasksSubmitted uint64
	TasksCompleted uint64
	StealsSuccess  uint64
	StealsFailed   uint64
}

// New creates a Pool with n workers (n <= 0 defaults to runtime.NumCPU()).
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p := &Pool{queues: make([]chan Task, n)}
	for i := range p.queues {
		p.queues[i] = make(chan Task, 256)
	}
	for i := range p.queues {
		go p.runWorker(i)
	}
	return p
}

// Submit hands task to the pool, round-robining across worker queues and
// falling back to running inline if both the chosen queue and the next one
// are momentarily full. It
// returns false only if the pool has been Closed.
func (p *Pool) Submit(task Task) bool {
	if p.closed.Load() {
		return false
	}

	n := len(p.queues)
	idx := int(p.submits.Add(1)) % n

	select {
	case p.queues[idx] <- task:
		return true
	default:
		next := (idx + 1) % n
		select {
		case p.queues[next] <- task:
			return true
		default:
			task()
			p.stats.completed.Add(1)
			return true
		}
	}
}

func (p *Pool) runWorker(id int) {
	own := p.queues[id]
	for {
		select {
		case task, ok := <-own:
			if !ok {
				return
			}
			task()
			p.stats.completed.Add(1)
			continue
		default:
		}

		if p.trySteal(id) {
			continue
		}

		task, ok := <-own
		if !ok {
			return
		}
		task()
		p.stats.completed.Add(1)
	}
}

func (p *Pool) trySteal(id int) bool {
	n := len(p.queues)
	start := (id + 1) % n
	for i := 0; i < n-1; i++ {
		victim := (start + i) % n
		select {
		case task, ok := <-p.queues[victim]:
			if ok && task != nil {
				p.stats.stealsSuccess.Add(1)
				task()
				p.stats.completed.Add(1)
				return true
			}
		default:
		}
	}
	p.stats.stealsFailed.Add(1)
	return false
}

// Close signals every worker to exit once its queue drains. Submit after
// Close always returns false.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	for _, q := range p.queues {
		close(q)
	}
}

// Snapshot returns current pool statistics.
func (p *Pool) Snapshot() Stats {
	return Stats{
		Workers:        len(p.queues),
		TasksSubmitted: p.submits.Load(),
		TasksCompleted: p.stats.completed.Load(),
		StealsSuccess:  p.stats.stealsSuccess.Load(),
		StealsFailed:   p.stats.stealsFailed.Load(),
	}
}
