// Package bench defines the error taxonomy shared by the rating engine,
// cache, need identifier, and pull loop, following the same
// code-plus-string-type pairing the reference engine used for its
// JSON-RPC error data, adapted to Go's typed-error idiom.
package bench

import "fmt"

const (
	CodeProviderError   = 2001
	CodeMalformedOutput = 2002
	CodeMissingPrereq   = 2003
	CodeCorruptCache    = 2004
	CodeInternal        = 3001

	TypeProviderError   = "PROVIDER_ERROR"
	TypeMalformedOutput = "MALFORMED_OUTPUT"
	TypeMissingPrereq   = "MISSING_PREREQUISITE"
	TypeCorruptCache    = "CORRUPT_CACHE"
	TypeInternal        = "INTERNAL_ERROR"
)

// ErrProvider is a rate-limit, 5xx, or "overloaded" style failure from the
// LLM collaborator. The circuit breaker suspends the offending model for
// the remainder of the batch when it sees this error.
type ErrProvider struct {
	Model  string
	Status int
	Body   string // truncated to ~500 bytes by NewErrProvider
	Cause  error
}

func NewErrProvider(model string, status int, body string, cause error) *ErrProvider {
	if len(body) > 500 {
		body = body[:500]
	}
	return &ErrProvider{Model: model, Status: status, Body: body, Cause: cause}
}

func (e *ErrProvider) Error() string {
	return fmt.Sprintf("provider error (model=%s, status=%d): %v", e.Model, e.Status, e.Cause)
}

func (e *ErrProvider) Unwrap() error { return e.Cause }

// StatusCode satisfies llm.ProviderError so the retry classifier can route
// provider failures to the circuit breaker by interface assertion alone.
func (e *ErrProvider) StatusCode() int { return e.Status }

// Code and Type satisfy the same code/type pairing the rest of this
// taxonomy uses, for callers that want to log a stable identifier.
func (e *ErrProvider) Code() int        { return CodeProviderError }
func (e *ErrProvider) TypeName() string { return TypeProviderError }

// ErrMalformedOutput marks a completion whose content did not parse into the
// shape its call type requires (empty, truncated, or schema-invalid JSON).
// It is retryable at the call site, unlike ErrProvider.
type ErrMalformedOutput struct {
	Model string
	Cause error
}

func (e *ErrMalformedOutput) Error() string {
	return fmt.Sprintf("malformed output (model=%s): %v", e.Model, e.Cause)
}

func (e *ErrMalformedOutput) Unwrap() error    { return e.Cause }
func (e *ErrMalformedOutput) Code() int        { return CodeMalformedOutput }
func (e *ErrMalformedOutput) TypeName() string { return TypeMalformedOutput }

// ErrMissingPrerequisite marks a cascade dependency that is known to be
// unavailable and will not be produced this run (cache-only mode, or an
// earlier failure already recorded it as missing).
type ErrMissingPrerequisite struct {
	Kind string // "sample", "feedback", "revision", "judgment"
	Key  string
}

func (e *ErrMissingPrerequisite) Error() string {
	return fmt.Sprintf("missing prerequisite %s: %s", e.Kind, e.Key)
}

func (e *ErrMissingPrerequisite) Code() int        { return CodeMissingPrereq }
func (e *ErrMissingPrerequisite) TypeName() string { return TypeMissingPrereq }

// ErrCorruptCache marks an on-disk artifact that failed to parse or lacked a
// cacheId. It is treated as absent; the operator diagnoses, nothing is
// auto-deleted.
type ErrCorruptCache struct {
	Path  string
	Cause error
}

func (e *ErrCorruptCache) Error() string {
	return fmt.Sprintf("corrupt cache entry %s: %v", e.Path, e.Cause)
}

func (e *ErrCorruptCache) Unwrap() error    { return e.Cause }
func (e *ErrCorruptCache) Code() int        { return CodeCorruptCache }
func (e *ErrCorruptCache) TypeName() string { return TypeCorruptCache }

// ErrInternal marks an algorithmic invariant violation (e.g. a singular
// Hessian under finite data). It is fatal; callers should abort the run.
type ErrInternal struct {
	Detail string
}

func (e *ErrInternal) Error() string    { return fmt.Sprintf("internal error: %s", e.Detail) }
func (e *ErrInternal) Code() int        { return CodeInternal }
func (e *ErrInternal) TypeName() string { return TypeInternal }

// TaskError is the terminal, user-visible error for one pull-loop task: it
// aggregates the failing model, an optional status code and response body,
// and the full cause chain. The innermost attribution wins — wrapping
// layers must not overwrite Model once set.
type TaskError struct {
	Model      string
	Message    string
	StatusCode int    // 0 if not applicable
	Body       string // truncated to ~500 bytes
	Cause      error
}

func NewTaskError(model, message string, statusCode int, body string, cause error) *TaskError {
	if len(body) > 500 {
		body = body[:500]
	}
	return &TaskError{Model: model, Message: message, StatusCode: statusCode, Body: body, Cause: cause}
}

func (e *TaskError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (model=%s, status=%d): %v", e.Message, e.Model, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s (model=%s): %v", e.Message, e.Model, e.Cause)
}

func (e *TaskError) Unwrap() error { return e.Cause }
