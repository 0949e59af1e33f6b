// Package batch runs independent per-item work with bounded concurrency.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is used when Options.Concurrency is not positive
const DefaultConcurrency = 4

// Options configures Process
type Options struct {
	// Concurrency is the maximum number of items processed at once
	Concurrency int
	// StopOnError decides whether an item error aborts the remaining items.
	// A nil StopOnError never stops; every item error stays in its Result.
	StopOnError func(error) bool
}

// Result is the outcome of one item. Index is the item's position in the input.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Process calls fn for every item and returns the results in input order.
//
// When StopOnError reports true for an item error, items that have not started
// yet are not run and the first such error is returned. Items that were not
// started because ctx (or the stop) cancelled the run carry the context error.
func Process[T, R any](ctx context.Context, items []T, opts Options, fn func(ctx context.Context, index int, item T) (R, error)) ([]Result[R], error) {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results, nil
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result[R]{Index: i, Err: err}
				return nil
			}
			value, err := fn(gctx, i, item)
			results[i] = Result[R]{Index: i, Value: value, Err: err}
			if err != nil && opts.StopOnError != nil && opts.StopOnError(err) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Values returns the values of successful results, keeping input order
func Values[R any](results []Result[R]) []R {
	values := make([]R, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			values = append(values, r.Value)
		}
	}
	return values
}
