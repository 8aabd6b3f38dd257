package pull

import (
	"sync"

	"golang.org/x/time/rate"
)

// CircuitBreaker suspends a model for the remainder of the current batch
// once it has produced a provider-level error, so a batch does not keep
// hammering a model that is already rate-limited or down. It resets fully
// at the start of every new batch.
type CircuitBreaker struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewCircuitBreaker returns a breaker with nothing suspended.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{limiters: make(map[string]*rate.Limiter)}
}

// ResetBatch clears every suspension. Call once per round, before
// dispatching that round's batch.
func (b *CircuitBreaker) ResetBatch() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limiters = make(map[string]*rate.Limiter)
}

// Trip suspends model for the remainder of the current batch. Implemented
// as a zero-rate, zero-burst limiter so Allowed never grants another token
// until the next ResetBatch.
func (b *CircuitBreaker) Trip(model string) {
	if model == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.limiters[model] = rate.NewLimiter(0, 0)
}

// Allowed reports whether model may still be called within the current
// batch.
func (b *CircuitBreaker) Allowed(model string) bool {
	b.mu.Lock()
	lim, tripped := b.limiters[model]
	b.mu.Unlock()
	if !tripped {
		return true
	}
	return lim.Allow()
}

// Tripped reports whether model has been suspended this batch.
func (b *CircuitBreaker) Tripped(model string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, tripped := b.limiters[model]
	return tripped
}
