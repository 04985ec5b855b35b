package azstore

import (
	"context"

	"github.com/azstore/azstore/lib/pacer"
)

// newRetryPolicyFactory builds the Factory that wraps the executor
// with bounded, randomized exponential backoff. Each call to the
// returned Factory's New gets its own Pacer so that a retry counter
// never leaks across unrelated requests sharing one Pipeline.
func newRetryPolicyFactory(cfg *Config) Factory {
	return FactoryFunc(func(next Policy) PolicyFunc {
		return func(ctx context.Context, req *RequestDescriptor) (*Response, error) {
			return runWithRetry(ctx, cfg, next, req)
		}
	})
}

func runWithRetry(ctx context.Context, cfg *Config, next Policy, req *RequestDescriptor) (*Response, error) {
	calc := cfg.Calculator
	if calc == nil {
		calc = pacer.NewAzure(cfg.DelayFactor, cfg.RandomizationFactor, pacer.MaxSleep(cfg.MaxDelay))
	}
	p := pacer.New(
		// Pacer.Call treats its configured retries value as the literal
		// max-tries count, not "retries beyond the first attempt", so
		// pass Retries+1 to get cfg.Retries retries after the first try.
		pacer.RetriesOption(cfg.Retries+1),
		pacer.MaxConnectionsOption(0),
		pacer.CalculatorOption(calc),
	)

	var (
		resp     *Response
		attempts int
		final    error
	)

	_ = p.Call(func() (bool, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.clientTimeout())
		defer cancel()
		var err error
		resp, err = next.Do(attemptCtx, req)
		if err != nil {
			final = err
			return shouldRetryTransportError(err), err
		}

		if classified := classifyResponse(resp, cfg); classified != nil {
			final = classified
			return shouldRetryClassified(classified, cfg), classified
		}

		final = nil
		return false, nil
	})

	if final != nil {
		if azErr, ok := final.(*Error); ok {
			azErr.Retries = attempts - 1
			return nil, azErr
		}
		return nil, final
	}
	return resp, nil
}

// shouldRetryTransportError reports whether a connection/dial/IO
// failure is worth retrying: classifyTransportError's Timeout and
// Network kinds are retryable, Cancelled is not.
func shouldRetryTransportError(err error) bool {
	azErr, ok := err.(*Error)
	if !ok {
		return false
	}
	return azErr.Kind == KindTimeout || azErr.Kind == KindNetwork
}

// shouldRetryClassified reports whether a classified HTTP-level error
// is worth retrying: only Transient-kind errors are retried, and only
// when their code is in the configured transient set or the status
// is >= 500; Auth, NotFound, Conflict, and Malformed never are.
func shouldRetryClassified(e *Error, cfg *Config) bool {
	if e.Kind != KindTransient {
		return false
	}
	_, explicit := cfg.TransientErrorCodes[e.Code]
	return explicit || e.StatusCode >= 500
}
