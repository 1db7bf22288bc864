// Package parallel provides the worker pool used for speculative frame
// rendering.
//
// The pool distributes tasks across multiple workers, each with their own
// queue. Workers can steal work from other workers when their own queue is
// empty, which balances load when some frames are slower to render than
// others.
//
// Each worker owns a state value of type T, created lazily on first use and
// passed into every task the worker executes. Because a state value is only
// ever touched by the goroutine that owns it, per-worker render caches need
// no synchronization. A stolen task simply runs against the stealing
// worker's own state.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a work-stealing pool of goroutines with per-worker owned state.
//
// Thread safety: Pool is safe for concurrent use.
type Pool[T any] struct {
	// workers is the number of worker goroutines.
	workers int

	// newState lazily creates a worker's owned state value.
	newState func() T

	// workQueues holds per-worker task queues. Each worker primarily
	// pulls from its own queue but can steal from others.
	workQueues []chan func(*T)

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting work.
	running atomic.Bool
}

// DefaultWorkers returns the default pool size: all cores minus one
// reserved for the interactive thread, never less than one.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// New creates a pool with the specified number of workers. If workers <= 0,
// DefaultWorkers is used. The pool starts immediately.
//
// newState is called at most once per worker, on the worker's own
// goroutine, the first time it executes a task.
func New[T any](workers int, newState func() T) *Pool[T] {
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	// Buffer size: a small multiple of the worker count hides submit
	// latency without letting stale speculative work pile up.
	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &Pool[T]{
		workers:    workers,
		newState:   newState,
		workQueues: make([]chan func(*T), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(*T), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

// worker is the main loop for each worker goroutine.
func (p *Pool[T]) worker(id int) {
	defer p.wg.Done()

	var state T
	var initialized bool
	run := func(task func(*T)) {
		if task == nil {
			return
		}
		if !initialized {
			state = p.newState()
			initialized = true
		}
		task(&state)
	}

	myQueue := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue, run)
			return

		case task := <-myQueue:
			run(task)

		default:
			if stolen := p.steal(id); stolen != nil {
				run(stolen)
			} else {
				// No work available anywhere, block on own queue.
				select {
				case <-p.done:
					p.drainQueue(myQueue, run)
					return
				case task := <-myQueue:
					run(task)
				}
			}
		}
	}
}

// drainQueue executes all remaining work in a queue before worker exit, so
// Close never strands a task that was accepted.
func (p *Pool[T]) drainQueue(queue chan func(*T), run func(func(*T))) {
	for {
		select {
		case task := <-queue:
			run(task)
		default:
			return
		}
	}
}

// steal attempts to take work from another worker's queue.
// Returns nil if no work is available.
func (p *Pool[T]) steal(myID int) func(*T) {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case task := <-p.workQueues[i]:
			return task
		default:
		}
	}
	return nil
}

// TrySubmit sends a single task to the worker with the shortest queue.
// It returns false without blocking when the pool is closed or every queue
// is full — speculative work is best-effort, so callers drop on refusal.
func (p *Pool[T]) TrySubmit(task func(*T)) bool {
	if task == nil || !p.running.Load() {
		return false
	}

	minLen := len(p.workQueues[0])
	minIdx := 0
	for i := 1; i < p.workers; i++ {
		if qLen := len(p.workQueues[i]); qLen < minLen {
			minLen = qLen
			minIdx = i
		}
	}

	select {
	case p.workQueues[minIdx] <- task:
		return true
	case <-p.done:
		return false
	default:
		return false
	}
}

// Close gracefully shuts down the pool. It stops accepting new work, lets
// workers finish their queued tasks, and joins every worker goroutine
// before returning — after Close, no task can touch shared state.
// Close is safe to call multiple times.
func (p *Pool[T]) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *Pool[T]) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *Pool[T]) IsRunning() bool {
	return p.running.Load()
}
