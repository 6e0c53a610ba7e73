package concurrency

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSimpleWorkerPoolRunsEveryTask(t *testing.T) {
	results := make([]int, 20)
	SimpleWorkerPool(context.Background(), 4, len(results), func(_ context.Context, i int) {
		results[i] = i * i
	})
	for i, v := range results {
		assert.Equal(t, i*i, v)
	}
}

func TestSimpleWorkerPoolBoundsConcurrency(t *testing.T) {
	var running, peak int32
	SimpleWorkerPool(context.Background(), 3, 12, func(context.Context, int) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
	})
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestSimpleWorkerPoolStopsFeedingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	SimpleWorkerPool(ctx, 2, 100, func(context.Context, int) {
		atomic.AddInt32(&calls, 1)
	})
	assert.Less(t, atomic.LoadInt32(&calls), int32(100))
}

func TestSimpleWorkerPoolNoTasks(t *testing.T) {
	SimpleWorkerPool(context.Background(), 4, 0, func(context.Context, int) {
		t.Fatal("fn must not run")
	})
}
