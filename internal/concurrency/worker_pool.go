package concurrency

import (
	"context"
	"sync"
)

// Small reusable worker pool. Tasks are identified by index so callers can
// write results into a pre-sized slice without extra locking.

type WorkerFn func(ctx context.Context, index int)

// SimpleWorkerPool runs fn once for every index in [0, tasks) on at most
// concurrency goroutines and waits for them. Indexes not yet handed out
// when ctx is cancelled are skipped.
func SimpleWorkerPool(ctx context.Context, concurrency int, tasks int, fn WorkerFn) {
	if tasks <= 0 {
		return
	}
	if concurrency <= 0 || concurrency > tasks {
		concurrency = tasks
	}

	next := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range next {
				fn(ctx, idx)
			}
		}()
	}

feed:
	for i := 0; i < tasks; i++ {
		select {
		case next <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(next)
	wg.Wait()
}
