package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPoolExhausted is returned when every candidate failed
var ErrPoolExhausted = errors.New("all attempts failed")

// AttemptFailure records why one candidate did not succeed
type AttemptFailure[C any] struct {
	Candidate C
	Err       error
}

// TryInOrder calls attempt for each candidate in order and returns the first
// success. Failures are collected, not propagated; they come back for
// diagnostics alongside ErrPoolExhausted when nobody succeeds. A positive
// timeout bounds each attempt separately. Cancellation of ctx stops the walk.
func TryInOrder[C, T any](ctx context.Context, candidates []C, timeout time.Duration, attempt func(context.Context, C) (T, error)) (T, []AttemptFailure[C], error) {
	var zero T
	var failures []AttemptFailure[C]

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, failures, err
		}

		result, err := tryOne(ctx, candidate, timeout, attempt)
		if err == nil {
			return result, failures, nil
		}
		failures = append(failures, AttemptFailure[C]{Candidate: candidate, Err: err})
	}

	if err := ctx.Err(); err != nil {
		return zero, failures, err
	}

	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		errs = append(errs, f.Err)
	}
	if len(errs) == 0 {
		return zero, failures, ErrPoolExhausted
	}
	return zero, failures, fmt.Errorf("%w: %w", ErrPoolExhausted, errors.Join(errs...))
}

func tryOne[C, T any](ctx context.Context, candidate C, timeout time.Duration, attempt func(context.Context, C) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return attempt(ctx, candidate)
}
