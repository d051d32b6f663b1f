// Package workpool runs independent per-file jobs on a bounded number of
// goroutines.
package workpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Progress receives one Add(1) per finished job. *progressbar.ProgressBar
// satisfies it.
type Progress interface {
	Add(num int) error
}

// Run calls job(ctx, i) for every i in [0, n) with at most workers calls in
// flight. Jobs report their own failures into per-index slots; Run only
// returns the context error when ctx is cancelled before all jobs started.
func Run(ctx context.Context, workers, n int, progress Progress, job func(ctx context.Context, i int)) error {
	if workers < 1 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return err
		}
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			job(ctx, i)
			if progress != nil {
				_ = progress.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}
