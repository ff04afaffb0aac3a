// Package pipeline provides the stage abstraction the engine is built from.
package pipeline

import (
	"context"
)

// Stage takes an input and produces an output.
type Stage[In, Out any] interface {
	Execute(ctx context.Context, input In) (Out, error)
}

// StageFunc is a function adapter for Stage interface.
type StageFunc[In, Out any] func(ctx context.Context, input In) (Out, error)

// Execute implements Stage interface.
func (f StageFunc[In, Out]) Execute(ctx context.Context, input In) (Out, error) {
	return f(ctx, input)
}

// Then runs first and feeds its output to next. next is skipped when first
// fails, and the error is returned with next's zero output.
func Then[A, B, C any](first Stage[A, B], next Stage[B, C]) Stage[A, C] {
	return StageFunc[A, C](func(ctx context.Context, input A) (C, error) {
		mid, err := first.Execute(ctx, input)
		if err != nil {
			var zero C
			return zero, err
		}
		return next.Execute(ctx, mid)
	})
}
