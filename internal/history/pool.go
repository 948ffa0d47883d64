package history

import (
	"context"
	"sync"
)

// partitionResult is what a worker derives from one partition.
type partitionResult struct {
	key      PartitionKey
	grid     []TimeGridEntry
	final    []FinalStatusRecord
	activity []ActivityEvent
}

// partitionPool runs the per-partition stages on a fixed number of workers.
type partitionPool struct {
	size    int
	jobs    chan PartitionKey
	results chan partitionResult
	process func(PartitionKey) partitionResult
}

func newPartitionPool(size, pending int, process func(PartitionKey) partitionResult) *partitionPool {
	if size <= 0 {
		size = 1
	}
	return &partitionPool{
		size:    size,
		jobs:    make(chan PartitionKey, size),
		results: make(chan partitionResult, pending),
		process: process,
	}
}

// run dispatches keys to the workers and collects every result. Dispatch
// stops when ctx is cancelled; the partial results are then discarded.
func (p *partitionPool) run(ctx context.Context, keys []PartitionKey) ([]partitionResult, error) {
	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx)
		}()
	}

	var dispatchErr error
dispatch:
	for _, key := range keys {
		select {
		case p.jobs <- key:
		case <-ctx.Done():
			dispatchErr = ctx.Err()
			break dispatch
		}
	}
	close(p.jobs)
	wg.Wait()
	close(p.results)

	if dispatchErr == nil {
		dispatchErr = ctx.Err()
	}
	if dispatchErr != nil {
		return nil, dispatchErr
	}

	out := make([]partitionResult, 0, len(keys))
	for r := range p.results {
		out = append(out, r)
	}
	return out, nil
}

func (p *partitionPool) worker(ctx context.Context) {
	for {
		select {
		case key, ok := <-p.jobs:
			if !ok {
				return
			}
			p.results <- p.process(key)
		case <-ctx.Done():
			return
		}
	}
}
