package retryclass_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tommoa/writing-bench/internal/bench"
	"github.com/tommoa/writing-bench/internal/retryclass"
)

// fastRetrier keeps test backoff delays in the microsecond range so tests
// that exhaust all attempts stay fast.
func fastRetrier() *retryclass.Retrier {
	r := retryclass.NewRetrier()
	r.InitialInterval = func() backoff.BackOff {
		return backoff.NewExponentialBackOff(backoff.WithInitialInterval(time.Microsecond))
	}
	return r
}

func TestIsProviderError(t *testing.T) {
	err := bench.NewErrProvider("gpt-5", 429, "rate limited", nil)
	if !retryclass.IsProviderError(err) {
		t.Error("expected ErrProvider to be classified as a provider error")
	}
	if retryclass.IsProviderError(&bench.ErrMalformedOutput{Model: "m"}) {
		t.Error("expected ErrMalformedOutput not to be classified as a provider error")
	}
}

func TestIsRetryable(t *testing.T) {
	if !retryclass.IsRetryable(&bench.ErrMalformedOutput{Model: "m"}) {
		t.Error("expected malformed output to be retryable")
	}
	if retryclass.IsRetryable(bench.NewErrProvider("m", 500, "", nil)) {
		t.Error("expected provider error not to be retryable at the call site")
	}
	if retryclass.IsRetryable(nil) {
		t.Error("expected nil to be non-retryable")
	}
}

func TestRetrier_StopsImmediatelyOnProviderError(t *testing.T) {
	r := fastRetrier()
	calls := 0
	_, err := r.Do(context.Background(), func(ctx context.Context) (any, error) {
		calls++
		return nil, bench.NewErrProvider("m", 503, "", nil)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call for a provider error, got %d", calls)
	}
}

func TestRetrier_RetriesMalformedOutputUpToFiveTimes(t *testing.T) {
	r := fastRetrier()
	calls := 0
	_, err := r.Do(context.Background(), func(ctx context.Context) (any, error) {
		calls++
		return nil, &bench.ErrMalformedOutput{Model: "m", Cause: errors.New("truncated")}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 5 {
		t.Errorf("expected 5 attempts for malformed output, got %d", calls)
	}
}

func TestRetrier_SucceedsAfterTransientFailure(t *testing.T) {
	r := fastRetrier()
	calls := 0
	v, err := r.Do(context.Background(), func(ctx context.Context) (any, error) {
		calls++
		if calls < 2 {
			return nil, &bench.ErrMalformedOutput{Model: "m"}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Errorf("got %v, want ok", v)
	}
}
