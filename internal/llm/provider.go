// Package llm is the opaque LLM collaborator boundary: four call types
// (sample, feedback, revision, judgment), each taking a model identifier and
// a prompt and returning text plus usage. The core never inspects a
// provider's transport; it only needs errors that can be classified as
// provider-level (for the circuit breaker) versus output-quality (for the
// retry layer), per internal/retryclass.
package llm

import (
	"context"

	"github.com/tommoa/writing-bench/pkg/types"
)

// Completion is the result of a produce-sample, produce-feedback, or
// produce-revision call: opaque text plus token accounting.
type Completion struct {
	Text      string
	Usage     types.Usage
	LatencyMS int64
}

// JudgmentCompletion is the result of a produce-judgment call. Winner is
// relative to the order the two texts were presented in this call -- the
// caller (internal/pull) is responsible for correcting it back to canonical
// A/B when it randomized presentation order to combat position bias.
type JudgmentCompletion struct {
	Winner    string // types.WinnerA, types.WinnerB, or types.WinnerTie
	Rationale string
	Usage     types.Usage
	LatencyMS int64
}

// Provider is the collaborator contract every model-backed implementation
// satisfies. Each method corresponds to one stage of the write -> critique ->
// revise -> judge pipeline.
type Provider interface {
	// Name identifies the provider for registry lookups and error labeling.
	Name() string

	ProduceSample(ctx context.Context, model string, prompt types.Prompt) (Completion, error)
	ProduceFeedback(ctx context.Context, model string, prompt types.Prompt, sampleText string) (Completion, error)
	ProduceRevision(ctx context.Context, model string, prompt types.Prompt, sampleText, feedbackText string) (Completion, error)
	ProduceJudgment(ctx context.Context, model string, prompt types.Prompt, textA, textB string) (JudgmentCompletion, error)
}

// ProviderError is satisfied by errors that originate from the provider
// layer itself (rate limits, 5xx, explicit overload signals) rather than
// from a malformed response body. internal/retryclass.IsProviderError type-
// asserts against this interface to route the error to the circuit breaker
// instead of the in-task retry loop.
type ProviderError interface {
	error
	StatusCode() int
}
