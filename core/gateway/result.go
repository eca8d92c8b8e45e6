package gateway

import (
	"encoding/json"

	"github.com/gaurav-prasanna/pagegate/core"
)

// Request asks the gateway to run one capability.
type Request struct {
	Capability string         `json:"capability"`
	Input      map[string]any `json:"input"`
}

// Result is the outcome of an invocation: an output map on success or a
// typed failure, never both.
type Result struct {
	output  map[string]any
	failure *core.Failure
}

// Success wraps a capability output. A nil output becomes an empty map.
func Success(output map[string]any) Result {
	if output == nil {
		output = map[string]any{}
	}
	return Result{output: output}
}

// Fail builds a failed result.
func Fail(kind core.ErrorKind, format string, args ...any) Result {
	return Result{failure: core.NewFailure(kind, format, args...)}
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool { return r.failure == nil }

// Output returns the capability output, nil on failure.
func (r Result) Output() map[string]any { return r.output }

// Failure returns the typed failure, nil on success.
func (r Result) Failure() *core.Failure { return r.failure }

// Err returns the failure as an error, or nil.
func (r Result) Err() error {
	if r.failure == nil {
		return nil
	}
	return r.failure
}

// MarshalJSON renders {"output": ...} or {"error": ..., "kind": ...}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.failure != nil {
		return json.Marshal(r.failure)
	}
	return json.Marshal(struct {
		Output map[string]any `json:"output"`
	}{Output: r.output})
}
