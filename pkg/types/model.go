// Package types holds the data model shared across the rating engine, the
// judgment cache, the need identifier, and the pull loop: models, prompts,
// writing samples, feedback, pairwise judgments, and the ratings derived
// from them.
package types

const (
	StageInitial     = "initial"
	StageRevised     = "revised"
	StageImprovement = "improvement"

	WinnerA   = "A"
	WinnerB   = "B"
	WinnerTie = "tie"
)

// Prompt is a single writing task: free-text instruction plus judging criteria.
type Prompt struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Tags            []string `json:"tags,omitempty"`
	Text            string   `json:"prompt"`
	JudgingCriteria []string `json:"judging_criteria,omitempty"`
	FeedbackPrompt  string   `json:"feedback_prompt,omitempty"`
	RevisionPrompt  string   `json:"revision_prompt,omitempty"`
}

// Usage records LLM token accounting for a single completion call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Sample is a produced text, either a model's first attempt at a prompt
// (stage initial) or a revision made in light of feedback (stage revised).
type Sample struct {
	CacheID      string `json:"cache_id"`
	SampleID     string `json:"sample_id"`
	Model        string `json:"model"`
	PromptID     string `json:"prompt_id"`
	OutputIndex  int    `json:"output_index"`
	Stage        string `json:"stage"`
	Text         string `json:"text"`
	OriginalID   string `json:"original_sample_id,omitempty"`
	FeedbackFrom string `json:"feedback_from,omitempty"`
	Usage        Usage  `json:"usage"`
	LatencyMS    int64  `json:"latency_ms"`
	CacheHit     bool   `json:"-"`
}

// Feedback is critique text produced by a source model targeting an initial sample.
type Feedback struct {
	CacheID      string `json:"cache_id"`
	FeedbackID   string `json:"feedback_id"`
	SourceModel  string `json:"source_model"`
	TargetSample string `json:"target_sample_id"`
	Text         string `json:"text"`
	Usage        Usage  `json:"usage"`
	LatencyMS    int64  `json:"latency_ms"`
}

// Judgment is one judge's decision between two samples.
//
// For stage "improvement", sample A is the original and sample B is the
// revision it spawned — the winner answers "did revising help?".
type Judgment struct {
	CacheID         string `json:"cache_id"`
	JudgmentID      string `json:"judgment_id"`
	JudgeModel      string `json:"judge_model"`
	PromptID        string `json:"prompt_id"`
	SampleA         string `json:"sample_a"`
	SampleB         string `json:"sample_b"`
	Winner          string `json:"winner"`
	Rationale       string `json:"rationale"`
	Stage           string `json:"stage"`
	PositionSwapped *bool  `json:"position_swapped,omitempty"`
	Usage           Usage  `json:"usage"`
	LatencyMS       int64  `json:"latency_ms"`
}

// Rating is a model's skill estimate on a single dimension, on the Elo scale.
type Rating struct {
	Model   string  `json:"model"`
	Elo     int     `json:"elo"`
	CI95    float64 `json:"ci95"` // math.Inf(1) when the model has zero matches
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Ties    int     `json:"ties"`
	Matches int     `json:"matches"`
}

// PairwiseRecord is the accumulated outcome between two models, keyed by the
// sorted label pair. It is the unit of cumulative, cross-run persistence.
type PairwiseRecord struct {
	ModelA string `json:"model_a"`
	ModelB string `json:"model_b"`
	WinsA  int    `json:"wins_a"`
	WinsB  int    `json:"wins_b"`
	Ties   int    `json:"ties"`
}

// SortedPair returns (lo, hi) for two model labels, in lexicographic order.
func SortedPair(a, b string) (string, string) {
	if a <= b {
		return a, b
	}
	return b, a
}
