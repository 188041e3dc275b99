package symkern

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one batch request.
type Result struct {
	ID      string
	Input   Expr
	Output  Expr
	Err     error
	Elapsed time.Duration
}

// Batch rewrites exprs concurrently, at most jobs at a time (GOMAXPROCS
// when jobs < 1). Every request runs on its own clone of s. Results are
// in input order; a failed request carries its error and partial output
// and does not stop the others. When ctx ends, requests not yet started
// are reported with ErrTimeout.
func (s *Session) Batch(ctx context.Context, exprs []Expr, jobs int) []Result {
	if jobs < 1 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(exprs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(jobs)
	for i, e := range exprs {
		i, e := i, e
		results[i] = Result{ID: uuid.NewString(), Input: e}
		eg.Go(func() error {
			r := &results[i]
			if err := egCtx.Err(); err != nil {
				r.Err = &AbortError{Limit: "time", Err: ErrTimeout, cause: err}
				return nil
			}
			start := time.Now()
			r.Output, r.Err = s.Clone().Rewrite(egCtx, e)
			r.Elapsed = time.Since(start)
			return nil
		})
	}
	_ = eg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.log.Debug("batch done", zap.Int("requests", len(exprs)), zap.Int("failed", failed), zap.Int("jobs", jobs))
	return results
}
