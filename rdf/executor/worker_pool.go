package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// WorkerPool runs independent operations on a fixed number of goroutines
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a pool; workerCount <= 0 uses NumCPU
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &WorkerPool{workerCount: workerCount}
}

// WorkerCount returns the number of worker goroutines
func (p *WorkerPool) WorkerCount() int {
	return p.workerCount
}

// ExecuteParallel applies operation to every input on the pool's workers.
// Results come back in input order. The first failing index (in input
// order) is reported; a cancelled ctx fails the inputs not yet started.
func ExecuteParallel[In, Out any](
	ctx context.Context,
	p *WorkerPool,
	inputs []In,
	operation func(context.Context, In) (Out, error),
) ([]Out, error) {
	if len(inputs) == 0 {
		return []Out{}, nil
	}

	results := make([]Out, len(inputs))
	errs := make([]error, len(inputs))

	jobs := make(chan int, len(inputs))
	for i := range inputs {
		jobs <- i
	}
	close(jobs)

	workers := p.workerCount
	if workers > len(inputs) {
		workers = len(inputs)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					errs[idx] = err
					continue
				}
				results[idx], errs[idx] = operation(ctx, inputs[idx])
			}
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("parallel execution failed at index %d: %w", i, err)
		}
	}
	return results, nil
}
