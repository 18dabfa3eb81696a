package core

import (
	"context"
	"time"
)

type result[T any] struct {
	value T
	err   error
}

// await runs f detached from the caller's cancellation. If ctx is done first
// the caller gets ctx.Err() while f keeps running to completion.
func await[T any](ctx context.Context, timeout time.Duration, f func(ctx context.Context) (T, error)) (T, error) {
	done := make(chan result[T], 1)
	go func() {
		callCtx := context.WithoutCancel(ctx)
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, timeout)
			defer cancel()
		}
		value, err := f(callCtx)
		done <- result[T]{value: value, err: err}
	}()
	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
