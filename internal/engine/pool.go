package engine

import (
	"context"
	"sync"

	"github.com/bhfdschds/hds-functions/pkg/types"
)

// forEachCell applies fn to every cell, on a bounded worker pool when
// workers is at least 2. Each cell is handed to exactly one worker and fn
// must touch only that cell, so the result is identical to the serial
// order. Returns the context error if cancellation interrupted the feed;
// the caller discards the half-transformed clone in that case.
func forEachCell(ctx context.Context, cells []*types.Cell, workers int, fn func(*types.Cell)) error {
	if workers < 2 {
		for _, cell := range cells {
			fn(cell)
		}
		return nil
	}

	jobs := make(chan *types.Cell, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cell := range jobs {
				fn(cell)
			}
		}()
	}

feed:
	for _, cell := range cells {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- cell:
		}
	}
	close(jobs)
	wg.Wait()

	return ctx.Err()
}
