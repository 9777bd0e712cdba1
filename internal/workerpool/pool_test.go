package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chunkererrors "github.com/standardbeagle/chunker/internal/errors"
)

func TestPool_RunsAllTasks(t *testing.T) {
	var count int32
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = Task{Priority: i % 3, Run: func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		}}
	}

	require.NoError(t, Run(context.Background(), 4, tasks))
	assert.EqualValues(t, 20, count)
}

func TestPool_HigherPriorityRunsFirstUnderSaturation(t *testing.T) {
	// With concurrency 1, tasks must drain strictly in priority order
	// since only one task can be in flight and the rest stay queued.
	p := New(1)
	var mu sync.Mutex
	var order []int

	for _, prio := range []int{1, 5, 3, 5, 0} {
		prio := prio
		p.Submit(Task{Priority: prio, Run: func(ctx context.Context) error {
			mu.Lock()
			order = append(order, prio)
			mu.Unlock()
			return nil
		}})
	}

	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, []int{5, 5, 3, 1, 0}, order)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const concurrency = 3
	var inFlight int32
	var maxSeen int32
	tasks := make([]Task, 30)
	for i := range tasks {
		tasks[i] = Task{Run: func(ctx context.Context) error {
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				prev := atomic.LoadInt32(&maxSeen)
				if cur <= prev || atomic.CompareAndSwapInt32(&maxSeen, prev, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return nil
		}}
	}

	require.NoError(t, Run(context.Background(), concurrency, tasks))
	assert.LessOrEqual(t, int(maxSeen), concurrency)
}

func TestPool_CollectsErrorsWithoutAbortingBatch(t *testing.T) {
	var ran int32
	tasks := []Task{
		{Label: "a", Run: func(ctx context.Context) error { atomic.AddInt32(&ran, 1); return errors.New("boom a") }},
		{Label: "b", Run: func(ctx context.Context) error { atomic.AddInt32(&ran, 1); return nil }},
		{Label: "c", Run: func(ctx context.Context) error { atomic.AddInt32(&ran, 1); return errors.New("boom c") }},
	}

	err := Run(context.Background(), 2, tasks)
	require.Error(t, err)
	assert.EqualValues(t, 3, ran)

	var multi *chunkererrors.MultiError
	require.ErrorAs(t, err, &multi)
	assert.Len(t, multi.Errors, 2)
}

func TestPool_PendingReflectsQueueDepth(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	p.Submit(Task{Run: func(ctx context.Context) error {
		<-release
		return nil
	}})
	p.Submit(Task{Run: func(ctx context.Context) error { return nil }})
	p.Submit(Task{Run: func(ctx context.Context) error { return nil }})

	done := make(chan error, 1)
	go func() { done <- p.Wait(context.Background()) }()

	// Give the first task a moment to be dequeued and start running.
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 2, p.Pending())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 0, p.Pending())
}
