// Package cpu implements the multi-threaded CPU execution backend of the
// level-set engine: the narrow-band exact distance pass, ray-parity sign
// resolution, and the fast-sweeping far-field propagator.
package cpu

import (
	"sync"
	"sync/atomic"
)

// workerPool is a fixed-size pool of goroutines for the engine's parallel
// phases.
//
// The pool distributes work items across multiple workers, each with their
// own queue. Workers steal from other queues when their own is empty, which
// balances load when triangle buckets differ in cost.
//
// Thread safety: workerPool is safe for concurrent use.
type workerPool struct {
	workers    int
	workQueues []chan func()
	done       chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
}

// newWorkerPool creates a pool with the given worker count.
// If workers is 0 or negative, GOMAXPROCS is used. A count of 1 yields
// strictly sequential execution on a single worker goroutine.
func newWorkerPool(workers int) *workerPool {
	if workers <= 0 {
		workers = defaultWorkers()
	}

	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &workerPool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}
	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *workerPool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]
	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return
		case work := <-myQueue:
			if work != nil {
				work()
			}
		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
			} else {
				select {
				case <-p.done:
					p.drainQueue(myQueue)
					return
				case work := <-myQueue:
					if work != nil {
						work()
					}
				}
			}
		}
	}
}

func (p *workerPool) drainQueue(queue chan func()) {
	for {
		select {
		case work := <-queue:
			if work != nil {
				work()
			}
		default:
			return
		}
	}
}

// steal attempts to take work from another worker's queue.
// Returns nil if no work is available.
func (p *workerPool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
			continue
		}
		select {
		case work := <-p.workQueues[i]:
			return work
		default:
		}
	}
	return nil
}

// executeAll distributes work across workers and blocks until every item has
// completed. This is the barrier primitive between engine phases: the next
// phase (or the next sweep direction) must not start before the previous one
// has fully materialized its writes.
func (p *workerPool) executeAll(work []func()) {
	if len(work) == 0 || !p.running.Load() {
		return
	}
	// A single item is cheaper to run inline than to queue; the wavefront
	// levels at the grid corners hit this constantly.
	if len(work) == 1 {
		work[0]()
		return
	}

	var completionWG sync.WaitGroup
	completionWG.Add(len(work))

	for i, fn := range work {
		workerID := i % p.workers
		workFn := fn

		wrapped := func() {
			defer completionWG.Done()
			workFn()
		}

		select {
		case p.workQueues[workerID] <- wrapped:
		case <-p.done:
			completionWG.Done()
		}
	}

	completionWG.Wait()
}

// close shuts the pool down, waiting for queued work to finish.
func (p *workerPool) close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// splitRange partitions [0, n) into at most parts contiguous spans of
// near-equal length. Used to bucket triangles and grid rows to workers in a
// deterministic, scheduling-independent way.
func splitRange(n, parts int) [][2]int {
	if n <= 0 {
		return nil
	}
	if parts > n {
		parts = n
	}
	spans := make([][2]int, 0, parts)
	chunk := n / parts
	rem := n % parts
	start := 0
	for i := 0; i < parts; i++ {
		end := start + chunk
		if i < rem {
			end++
		}
		spans = append(spans, [2]int{start, end})
		start = end
	}
	return spans
}
