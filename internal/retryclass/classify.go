// Package retryclass classifies LLM-call failures and retries the
// retryable ones with backoff. Provider errors (rate limits, 5xx, explicit
// overload signals) are never retried here -- the pull loop's circuit
// breaker owns those. Output-quality errors (malformed or truncated
// responses) are retried in place.
package retryclass

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v5"

	"github.com/tommoa/writing-bench/internal/bench"
	"github.com/tommoa/writing-bench/internal/llm"
)

// IsProviderError reports whether err originates from the provider layer
// itself, by asserting against llm.ProviderError (satisfied by
// bench.ErrProvider and any provider-supplied error exposing StatusCode).
func IsProviderError(err error) bool {
	var pe llm.ProviderError
	return errors.As(err, &pe)
}

// IsRetryable reports whether err is an output-quality failure worth
// retrying at the call site: malformed output, but never a provider error.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsProviderError(err) {
		return false
	}
	var malformed *bench.ErrMalformedOutput
	if errors.As(err, &malformed) {
		return true
	}
	// Anything else output-shaped (truncation, empty body) that isn't a
	// provider error is still worth one more attempt.
	var provider *bench.ErrProvider
	return !errors.As(err, &provider)
}

// attemptsMalformed is the budget for malformed-output failures; other
// retryable errors get attemptsDefault.
const (
	attemptsDefault   = 3
	attemptsMalformed = 5
)

// Retrier wraps a call with exponential backoff, jittered +-25%, escalating
// malformed-output failures to five attempts and everything else to three.
// Provider errors are never retried -- Do returns them immediately.
type Retrier struct {
	// InitialInterval, when set, builds the BackOff each Do call uses in
	// place of the default; nil means cenkalti/backoff/v5's exponential
	// backoff with its default intervals and a 0.25 randomization factor.
	InitialInterval func() backoff.BackOff
}

// NewRetrier returns a Retrier using cenkalti/backoff/v5's exponential
// backoff, jittered +-25%.
func NewRetrier() *Retrier {
	return &Retrier{}
}

func (r *Retrier) newBackOff() backoff.BackOff {
	if r.InitialInterval != nil {
		return r.InitialInterval()
	}
	b := backoff.NewExponentialBackOff()
	b.RandomizationFactor = 0.25
	return b
}

// Do runs fn, retrying on retryable errors up to the attempt budget implied
// by the failure kind (3 generally, 5 for malformed output). A provider
// error or a non-retryable error is wrapped as backoff.Permanent and returns
// immediately on first occurrence.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (any, error) {
		attempt++
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		budget := attemptsDefault
		var malformed *bench.ErrMalformedOutput
		if errors.As(err, &malformed) {
			budget = attemptsMalformed
		}
		if attempt >= budget {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}, backoff.WithBackOff(r.newBackOff()), backoff.WithMaxTries(uint(attemptsMalformed)))
}
