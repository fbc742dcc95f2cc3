// Package batch runs a function over a list of items with bounded
// concurrency: consecutive chunks, full fan-out inside each chunk. One
// item's failure never disturbs its siblings.
package batch

import (
	"context"
	"fmt"
	"sync"
)

// Outcome records one item's result: a value or a captured failure.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Fn analyzes a single item.
type Fn[T any] func(ctx context.Context, item string) (T, error)

// Run processes items in consecutive chunks of chunkSize. Within a
// chunk every item runs concurrently; the next chunk starts only after
// the whole chunk settles. The result has exactly one Outcome per
// input item, in input order. Panics inside fn are captured into that
// item's Outcome.
func Run[T any](ctx context.Context, items []string, chunkSize int, fn Fn[T]) []Outcome[T] {
	if chunkSize < 1 {
		chunkSize = 1
	}
	outcomes := make([]Outcome[T], len(items))

	for start := 0; start < len(items); start += chunkSize {
		end := min(start+chunkSize, len(items))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i] = settle(ctx, items[i], fn)
			}(i)
		}
		wg.Wait()
	}
	return outcomes
}

// settle invokes fn for one item, converting a panic into an error.
func settle[T any](ctx context.Context, item string, fn Fn[T]) (out Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic analyzing %s: %v", item, r)
		}
	}()
	out.Value, out.Err = fn(ctx, item)
	return out
}
