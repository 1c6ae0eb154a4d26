package enforcer

import (
	"strings"
	"time"
)

// Kind distinguishes request outcomes from response outcomes.
type Kind string

// Outcome kinds.
const (
	KindRequest  Kind = "request"
	KindResponse Kind = "response"
)

// Outcome is the result of validating one traffic snapshot. A nil *Outcome
// means the snapshot conforms to the contract.
type Outcome struct {
	// Kind reports whether this outcome describes a request or a response.
	Kind Kind `json:"kind"`

	// Method is the HTTP method of the validated traffic.
	Method string `json:"method"`

	// Path is the concrete request path.
	Path string `json:"path"`

	// StatusCode is the response status code. Zero for request outcomes.
	StatusCode int `json:"statusCode,omitempty"`

	// Message is the fixed human summary for this outcome.
	Message string `json:"message"`

	// Details carries one supplementary string, currently only the
	// underlying message of an internal validation-engine error.
	Details string `json:"details,omitempty"`

	// Findings is the ordered list of distinct finding strings.
	Findings []string `json:"findings"`

	// GovernanceOnly is true only when strict mode is enabled and every
	// finding is an undeclared-element (governance) finding, never a
	// structural or schema failure.
	GovernanceOnly bool `json:"governanceOnly"`

	// Timestamp records when the outcome was produced, in UTC.
	Timestamp time.Time `json:"timestamp"`
}

// Summary messages.
const (
	msgRequestFailed    = "Request validation failed"
	msgResponseFailed   = "Response validation failed"
	msgStrictViolations = "Strict mode violations detected"
	msgEngineError      = "Validation error occurred"
)

// governancePrefix marks findings produced by the strict-mode auditor.
// Classification keys off this string prefix; see the note in DESIGN.md
// about the all-or-nothing semantics.
const governancePrefix = "Undeclared"

// IsGovernanceFinding reports whether a finding string is an
// undeclared-element (governance) finding.
func IsGovernanceFinding(f string) bool {
	return strings.HasPrefix(f, governancePrefix)
}

// classify merges accumulated findings into one outcome, or nil when the
// list is empty. Duplicate finding strings are dropped, keeping first
// occurrence order.
func (e *Enforcer) classify(kind Kind, method, path string, statusCode int, findings []string) *Outcome {
	findings = dedupe(findings)
	if len(findings) == 0 {
		return nil
	}

	governanceOnly := e.strict
	if governanceOnly {
		for _, f := range findings {
			if !IsGovernanceFinding(f) {
				governanceOnly = false
				break
			}
		}
	}

	message := msgRequestFailed
	switch {
	case governanceOnly:
		message = msgStrictViolations
	case kind == KindResponse:
		message = msgResponseFailed
	}

	return &Outcome{
		Kind:           kind,
		Method:         method,
		Path:           path,
		StatusCode:     statusCode,
		Message:        message,
		Findings:       findings,
		GovernanceOnly: governanceOnly,
		Timestamp:      time.Now().UTC(),
	}
}

// engineError builds the generic outcome for an unexpected internal
// failure, carrying the underlying message as Details.
func engineError(kind Kind, method, path string, statusCode int, cause string) *Outcome {
	return &Outcome{
		Kind:       kind,
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Message:    msgEngineError,
		Details:    cause,
		Findings:   []string{msgEngineError},
		Timestamp:  time.Now().UTC(),
	}
}

// dedupe removes duplicate strings preserving first-occurrence order.
func dedupe(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
