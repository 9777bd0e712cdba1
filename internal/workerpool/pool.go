// Package workerpool provides a bounded, priority-ordered task runner used
// wherever batch file processing parallelizes across a bounded number of
// goroutines: higher-Priority tasks are started before lower-priority ones
// whenever more than one is ready and a slot is free.
package workerpool

import (
	"container/heap"
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/standardbeagle/chunker/internal/diag"
	chunkererrors "github.com/standardbeagle/chunker/internal/errors"
)

// Task is one unit of work submitted to a Pool. Higher Priority values are
// scheduled first; Label is used only for diagnostics.
type Task struct {
	Priority int
	Label    string
	Run      func(ctx context.Context) error
}

// Pool is a bounded worker pool with a priority queue. Tasks are submitted
// with Submit before calling Wait; Wait drains the queue highest-priority
// first, running at most Concurrency tasks at once, and returns an
// aggregated error for every task that failed without aborting the rest of
// the batch.
type Pool struct {
	concurrency int

	mu    sync.Mutex
	queue priorityQueue
	seq   int64
}

// New creates a Pool bounded to concurrency simultaneous tasks. concurrency
// <= 0 is treated as 1.
func New(concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	p := &Pool{concurrency: concurrency}
	heap.Init(&p.queue)
	return p
}

// Submit enqueues t. Safe to call concurrently, including from within a
// running task's Run function.
func (p *Pool) Submit(t Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	heap.Push(&p.queue, &queuedTask{task: t, seq: p.seq})
}

// Pending reports how many tasks are queued but not yet started.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

func (p *Pool) pop() (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.queue.Len() == 0 {
		return Task{}, false
	}
	qt := heap.Pop(&p.queue).(*queuedTask)
	return qt.task, true
}

// Wait dispatches queued tasks, highest priority first, bounded to
// Concurrency concurrent runs, until the queue is drained and every
// dispatched task has returned. A per-task error is collected rather than
// aborting the remaining batch; the returned error is nil, a single error,
// or a *chunkererrors.MultiError if more than one task failed.
func (p *Pool) Wait(ctx context.Context) error {
	sem := semaphore.NewWeighted(int64(p.concurrency))
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var errs []error

	for {
		if err := sem.Acquire(gctx, 1); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}
		task, ok := p.pop()
		if !ok {
			sem.Release(1)
			break
		}

		t := task
		g.Go(func() error {
			defer sem.Release(1)
			if err := t.Run(gctx); err != nil {
				diag.Warn("workerpool", "task %q failed: %v", t.Label, err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return chunkererrors.NewMultiError(errs)
}

// Run is a convenience wrapper: submit every task to a new Pool of the
// given concurrency and wait for them all to finish.
func Run(ctx context.Context, concurrency int, tasks []Task) error {
	p := New(concurrency)
	for _, t := range tasks {
		p.Submit(t)
	}
	return p.Wait(ctx)
}
