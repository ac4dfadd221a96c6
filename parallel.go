// parallel.go: cooperative parallel-for primitive
//
// The only concurrency construct the engine exposes to its algorithms: a
// bounded fan-out over contiguous index chunks that always runs to
// completion. No suspension, no cancellation; parallel sections only ever
// write disjoint indices, so results are independent of the worker count.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// parallelFor runs fn over [0, n) split into at most workers contiguous
// chunks. A panic inside a chunk is captured and re-raised on the calling
// goroutine once every worker has drained, preserving the engine's
// halt-on-fatal semantics across the fan-out.
func parallelFor(workers, n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if workers <= 1 || n == 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers

	var (
		g         errgroup.Group
		panicOnce sync.Once
		panicked  interface{}
	)
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					panicOnce.Do(func() { panicked = r })
				}
			}()
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()

	if panicked != nil {
		panic(panicked)
	}
}
