package workpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result pairs one input with its outcome. Index is the input's position.
type Result[In, Out any] struct {
	Index int
	Input In
	Value Out
	Err   error
}

// OK reports whether the unit succeeded
func (r Result[In, Out]) OK() bool {
	return r.Err == nil
}

// Map runs fn over inputs with at most workers running at once and returns
// one Result per input, in input order. A failing unit never cancels its
// siblings; units not yet started when ctx ends report ctx.Err().
func Map[In, Out any](ctx context.Context, workers int, inputs []In, fn func(context.Context, In) (Out, error)) []Result[In, Out] {
	results := make([]Result[In, Out], len(inputs))
	if len(inputs) == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for i, in := range inputs {
		i, in := i, in
		results[i] = Result[In, Out]{Index: i, Input: in}
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			v, err := fn(ctx, in)
			results[i].Value = v
			results[i].Err = err
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Succeeded returns the values of the successful results, in input order
func Succeeded[In, Out any](results []Result[In, Out]) []Out {
	out := make([]Out, 0, len(results))
	for _, r := range results {
		if r.OK() {
			out = append(out, r.Value)
		}
	}
	return out
}
