package ledger

import "context"

type result[T any] struct {
	value T
	err   error
}

// Await runs call and waits for it or for ctx, whichever ends first. An
// implementation that ignores ctx cannot hold the caller past its deadline:
// a late answer is dropped and reported as an ErrorTimeout.
func Await[T any](ctx context.Context, op string, call func(context.Context) (T, error)) (T, error) {
	done := make(chan result[T], 1)
	go func() {
		v, err := call(ctx)
		done <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, newError(ErrorTimeout, op, "no answer before deadline", ctx.Err())
	}
}
