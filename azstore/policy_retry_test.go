package azstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azstore/azstore/lib/pacer"
)

// spyCalculator counts invocations while always returning zero sleep,
// so a test can assert an override Calculator actually gets used
// without slowing the test down.
type spyCalculator struct{ calls int }

func (s *spyCalculator) Calculate(pacer.State) time.Duration {
	s.calls++
	return 0
}

func retryConfig(t *testing.T, retries int) *Config {
	t.Helper()
	cfg, err := NewConfig("myaccount", AnonymousCredential{},
		WithRetries(retries),
		WithBackoff(0, 0, 0),
	)
	require.NoError(t, err)
	return cfg
}

func TestRunWithRetrySucceedsFirstTry(t *testing.T) {
	var calls int
	next := PolicyFunc(func(ctx context.Context, req *RequestDescriptor) (*Response, error) {
		calls++
		return &Response{StatusCode: 200}, nil
	})

	resp, err := runWithRetry(context.Background(), retryConfig(t, 3), next, &RequestDescriptor{})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestRunWithRetryRetriesTransientThenSucceeds(t *testing.T) {
	var calls int
	next := PolicyFunc(func(ctx context.Context, req *RequestDescriptor) (*Response, error) {
		calls++
		if calls < 3 {
			return &Response{
				StatusCode: 503,
				Headers:    map[string]string{"content-type": "application/xml"},
				Payload:    []byte(`<Error><Code>ServerBusy</Code><Message>busy</Message></Error>`),
			}, nil
		}
		return &Response{StatusCode: 200}, nil
	})

	resp, err := runWithRetry(context.Background(), retryConfig(t, 5), next, &RequestDescriptor{})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 3, calls)
}

func TestRunWithRetryGivesUpAfterConfiguredRetries(t *testing.T) {
	var calls int
	next := PolicyFunc(func(ctx context.Context, req *RequestDescriptor) (*Response, error) {
		calls++
		return &Response{
			StatusCode: 503,
			Headers:    map[string]string{"content-type": "application/xml"},
			Payload:    []byte(`<Error><Code>ServerBusy</Code><Message>busy</Message></Error>`),
		}, nil
	})

	_, err := runWithRetry(context.Background(), retryConfig(t, 2), next, &RequestDescriptor{})
	require.Error(t, err)
	azErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindTransient, azErr.Kind)
	assert.Equal(t, 3, calls) // first attempt + 2 retries
	assert.Equal(t, 2, azErr.Retries)
}

func TestRunWithRetryNeverRetriesPermanentErrors(t *testing.T) {
	var calls int
	next := PolicyFunc(func(ctx context.Context, req *RequestDescriptor) (*Response, error) {
		calls++
		return &Response{
			StatusCode: 400,
			Headers:    map[string]string{"content-type": "application/xml"},
			Payload:    []byte(`<Error><Code>InvalidInput</Code><Message>bad</Message></Error>`),
		}, nil
	})

	_, err := runWithRetry(context.Background(), retryConfig(t, 5), next, &RequestDescriptor{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestShouldRetryTransportError(t *testing.T) {
	assert.True(t, shouldRetryTransportError(newError(KindTimeout, "Timeout", "x")))
	assert.True(t, shouldRetryTransportError(newError(KindNetwork, "Network", "x")))
	assert.False(t, shouldRetryTransportError(newError(KindCancelled, "Cancelled", "x")))
	assert.False(t, shouldRetryTransportError(assertErr2))
}

var assertErr2 = &wrappedPlainError{"boom"}

type wrappedPlainError struct{ msg string }

func (e *wrappedPlainError) Error() string { return e.msg }

func TestShouldRetryClassified(t *testing.T) {
	cfg := retryConfig(t, 3)
	assert.True(t, shouldRetryClassified(newError(KindTransient, "ServerBusy", "x"), cfg))
	assert.True(t, shouldRetryClassified(&Error{Kind: KindTransient, Code: "Unlisted", StatusCode: 503}, cfg))
	assert.False(t, shouldRetryClassified(&Error{Kind: KindTransient, Code: "Unlisted", StatusCode: 400}, cfg))
	assert.False(t, shouldRetryClassified(newError(KindAuth, "AuthenticationFailed", "x"), cfg))
}

func TestRunWithRetryGivesEachAttemptItsOwnDeadline(t *testing.T) {
	cfg, err := NewConfig("myaccount", AnonymousCredential{},
		WithRetries(2), WithBackoff(0, 0, 0),
		WithServerTimeout(time.Minute), WithClientTimeoutDelay(0))
	require.NoError(t, err)

	var deadlines []time.Time
	next := PolicyFunc(func(ctx context.Context, req *RequestDescriptor) (*Response, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok, "attempt context should carry a deadline")
		deadlines = append(deadlines, deadline)
		return &Response{
			StatusCode: 503,
			Headers:    map[string]string{"content-type": "application/xml"},
			Payload:    []byte(`<Error><Code>ServerBusy</Code><Message>busy</Message></Error>`),
		}, nil
	})

	_, err = runWithRetry(context.Background(), cfg, next, &RequestDescriptor{})
	require.Error(t, err)
	require.Len(t, deadlines, 3) // first attempt + 2 retries
	for _, d := range deadlines {
		assert.WithinDuration(t, time.Now().Add(time.Minute), d, 5*time.Second)
	}
}

func TestRunWithRetryHonorsCalculatorOverride(t *testing.T) {
	spy := &spyCalculator{}

	cfg, err := NewConfig("myaccount", AnonymousCredential{}, WithRetries(3), WithCalculator(spy))
	require.NoError(t, err)

	var calls int
	next := PolicyFunc(func(ctx context.Context, req *RequestDescriptor) (*Response, error) {
		calls++
		if calls < 2 {
			return &Response{
				StatusCode: 503,
				Headers:    map[string]string{"content-type": "application/xml"},
				Payload:    []byte(`<Error><Code>ServerBusy</Code><Message>busy</Message></Error>`),
			}, nil
		}
		return &Response{StatusCode: 200}, nil
	})

	_, err = runWithRetry(context.Background(), cfg, next, &RequestDescriptor{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, spy.calls >= 1)
}
