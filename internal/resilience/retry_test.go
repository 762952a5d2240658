package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr struct{ code int }

func (e *statusErr) Error() string   { return "status error" }
func (e *statusErr) HTTPStatus() int { return e.code }

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoValRetriesTransient(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), fastRetry(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &statusErr{code: 503}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestDoValStopsOnPermanentError(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), fastRetry(), func(ctx context.Context) (string, error) {
		calls++
		return "", &statusErr{code: 401}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls, "non-retryable status must not retry")
}

func TestDoValExhaustsAttempts(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), fastRetry(), func(ctx context.Context) (string, error) {
		calls++
		return "", eris.New("read tcp: connection reset by peer")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoValContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int
	_, err := DoVal(ctx, fastRetry(), func(ctx context.Context) (string, error) {
		calls++
		return "", eris.New("timeout while reading")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls, "a cancelled context stops retries immediately")
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&statusErr{code: 429}))
	assert.True(t, IsTransient(&statusErr{code: 500}))
	assert.False(t, IsTransient(&statusErr{code: 404}))
	assert.True(t, IsTransient(eris.New("dial tcp: connection refused")))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(eris.New("invalid api key")))
}

func TestRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, RetryableStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		assert.False(t, RetryableStatus(code), "code %d", code)
	}
}

func TestComputeBackoffCapped(t *testing.T) {
	cfg := applyDefaults(RetryConfig{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, Multiplier: 10})
	assert.LessOrEqual(t, computeBackoff(5, cfg), 3*time.Second+3*time.Second/4)
}
