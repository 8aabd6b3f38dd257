// Package promptio is the prompt-loader collaborator boundary: a thin
// interface plus an in-memory default implementation. File-based (TOML)
// loading is explicitly out of scope for the core -- this package only
// specifies the shape a loader produces.
package promptio

import (
	"fmt"

	"github.com/tommoa/writing-bench/pkg/types"
)

// Prompt is an alias for the shared data-model type: a prompt's id is
// unique within a run and its text is the content-hash input for the
// judgment cache.
type Prompt = types.Prompt

// Loader produces the set of prompts a run will use.
type Loader interface {
	Load() ([]Prompt, error)
}

// StaticLoader is the default, in-memory Loader: a fixed slice of prompts
// supplied up front, primarily for tests and for callers that already have
// prompts in hand.
type StaticLoader struct {
	Prompts []Prompt
}

// NewStaticLoader returns a StaticLoader wrapping prompts as-is.
func NewStaticLoader(prompts []Prompt) *StaticLoader {
	return &StaticLoader{Prompts: prompts}
}

// Load validates prompt id uniqueness and returns the configured prompts.
func (l *StaticLoader) Load() ([]Prompt, error) {
	seen := make(map[string]struct{}, len(l.Prompts))
	for _, p := range l.Prompts {
		if p.ID == "" {
			return nil, fmt.Errorf("promptio: prompt has empty id")
		}
		if _, ok := seen[p.ID]; ok {
			return nil, fmt.Errorf("promptio: duplicate prompt id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return append([]Prompt(nil), l.Prompts...), nil
}
