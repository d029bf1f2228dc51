package tspaths

import (
	"context"
	"runtime"
	"sync"
)

// processParallel runs processFile on a worker pool. Parsing gets its own
// tree-sitter parser per call and resolution only reads the shared tables,
// so workers need no coordination. Results come back in input order so the
// serial commit that follows is deterministic. Once ctx is done the remaining
// items are marked with its error instead of being processed.
func (e *Engine) processParallel(ctx context.Context, items []workItem) []scanResult {
	if len(items) == 0 {
		return nil
	}

	numWorkers := min(runtime.NumCPU(), len(items))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan int, len(items))
	for i := range items {
		workCh <- i
	}
	close(workCh)

	results := make([]scanResult, len(items))
	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				if err := ctx.Err(); err != nil {
					results[i] = scanResult{item: items[i], err: err}
					continue
				}
				results[i] = e.processFile(ctx, items[i])
			}
		}()
	}
	wg.Wait()
	return results
}
