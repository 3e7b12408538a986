package pipeline

import (
	"runtime"
	"sync"
)

// Map runs fn over every item on a fixed worker pool and returns the
// results in input order, so sharding never changes the output. Used to
// spread similarity pair scoring across cores on large manuscripts.
func Map[T, R any](items []T, workers int, fn func(T) R) []R {
	if len(items) == 0 || fn == nil {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 1 {
			workers = 1
		}
	}
	if workers > len(items) {
		workers = len(items)
	}

	out := make([]R, len(items))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				out[idx] = fn(items[idx])
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}
