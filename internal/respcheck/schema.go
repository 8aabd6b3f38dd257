// Package respcheck validates the structurally-required JSON envelope of a
// raw LLM completion before it is trusted as a judgment, using the same
// schema-validation library the reference stack uses for its structured-
// output assertion layer (github.com/santhosh-tekuri/jsonschema/v6),
// repointed here at judge output instead of trace data. A schema violation
// is an output-quality error: the retry layer treats it as retryable.
package respcheck

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/segmentio/encoding/json"
)

const judgmentSchemaDoc = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["winner", "rationale"],
	"properties": {
		"winner": {"type": "string", "enum": ["A", "B", "tie"]},
		"rationale": {"type": "string", "minLength": 1}
	}
}`

var judgmentSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("judgment.json", strings.NewReader(judgmentSchemaDoc)); err != nil {
		panic(fmt.Sprintf("respcheck: compile judgment schema: %v", err))
	}
	sch, err := compiler.Compile("judgment.json")
	if err != nil {
		panic(fmt.Sprintf("respcheck: compile judgment schema: %v", err))
	}
	judgmentSchema = sch
}

// Judgment is the validated shape of a judge's raw completion.
type Judgment struct {
	Winner    string `json:"winner"`
	Rationale string `json:"rationale"`
}

// ValidateJudgment parses raw as JSON and checks it against the judgment
// envelope schema ({"winner": "A"|"B"|"tie", "rationale": string}). A parse
// failure or schema violation both return a non-nil error; the caller wraps
// it in bench.ErrMalformedOutput.
func ValidateJudgment(raw []byte) (Judgment, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Judgment{}, fmt.Errorf("judgment response is not valid JSON: %w", err)
	}
	if err := judgmentSchema.Validate(v); err != nil {
		return Judgment{}, fmt.Errorf("judgment response failed schema validation: %w", err)
	}
	var j Judgment
	if err := json.Unmarshal(raw, &j); err != nil {
		return Judgment{}, fmt.Errorf("judgment response decode: %w", err)
	}
	return j, nil
}
