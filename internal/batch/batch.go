// Package batch runs independent jobs on a bounded pool of goroutines.
package batch

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Run calls fn for every index in [0, n) using at most workers goroutines.
//
// If workers <= 0, GOMAXPROCS is used. Run stops scheduling new jobs once ctx
// is done or fn returns an error, and returns the first such error. Jobs that
// are already running see the cancellation through their context.
func Run(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return ctx.Err()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < n; i++ {
		// Check if context is cancelled (a job failed or the caller gave up)
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
