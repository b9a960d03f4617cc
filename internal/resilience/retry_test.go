package resilience

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoVal_SucceedsFirstTry(t *testing.T) {
	calls := 0
	v, err := DoVal(context.Background(), Attempts(3), func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestDoVal_RetriesTransient(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, JitterFraction: 0}
	v, err := DoVal(context.Background(), cfg, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewTransientError(eris.New("rate limited"), http.StatusTooManyRequests)
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestDoVal_NoRetryOnPermanent(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}
	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, eris.New("invalid api key")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_SingleMeansNoRetry(t *testing.T) {
	calls := 0
	_, err := DoVal(context.Background(), Single(), func(context.Context) (int, error) {
		calls++
		return 0, NewTransientError(eris.New("boom"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: 50 * time.Millisecond}
	_, err := DoVal(ctx, cfg, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(eris.New("boom"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_WrapsDoVal(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Attempts(2), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(eris.New("bad request")))
	assert.True(t, IsTransient(NewTransientError(eris.New("x"), 503)))
	assert.True(t, IsTransient(eris.New("read tcp: i/o timeout")))
	// Wrapped transient errors are still detected through the chain.
	assert.True(t, IsTransient(eris.Wrap(NewTransientError(eris.New("x"), 429), "sync contact")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "code %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		assert.False(t, IsTransientHTTPStatus(code), "code %d", code)
	}
}
