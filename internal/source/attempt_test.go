package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryInOrderFirstSuccessShortCircuits(t *testing.T) {
	var tried []string
	result, failures, err := TryInOrder(context.Background(), []string{"a", "b", "c"}, 0,
		func(_ context.Context, c string) (int, error) {
			tried = append(tried, c)
			if c == "a" {
				return 0, errors.New("a is down")
			}
			return len(tried), nil
		})

	require.NoError(t, err)
	assert.Equal(t, 2, result)
	assert.Equal(t, []string{"a", "b"}, tried)
	require.Len(t, failures, 1)
	assert.Equal(t, "a", failures[0].Candidate)
}

func TestTryInOrderExhausted(t *testing.T) {
	down := errors.New("down")
	_, failures, err := TryInOrder(context.Background(), []string{"a", "b"}, 0,
		func(_ context.Context, c string) (string, error) {
			return "", down
		})

	assert.ErrorIs(t, err, ErrPoolExhausted)
	assert.ErrorIs(t, err, down)
	assert.Len(t, failures, 2)

	_, failures, err = TryInOrder(context.Background(), nil, 0,
		func(_ context.Context, c string) (string, error) { return c, nil })
	assert.ErrorIs(t, err, ErrPoolExhausted)
	assert.Empty(t, failures)
}

func TestTryInOrderPerAttemptTimeout(t *testing.T) {
	result, failures, err := TryInOrder(context.Background(), []string{"slow", "fast"}, 20*time.Millisecond,
		func(ctx context.Context, c string) (string, error) {
			if c == "slow" {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return c, ctx.Err()
		})

	require.NoError(t, err)
	assert.Equal(t, "fast", result)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0].Err, context.DeadlineExceeded)
}

func TestTryInOrderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, _, err := TryInOrder(ctx, []string{"a", "b"}, 0,
		func(_ context.Context, c string) (string, error) {
			calls++
			cancel()
			return "", errors.New("failed")
		})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
