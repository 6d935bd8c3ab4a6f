package filter

import (
	"sort"
	"strings"
)

// Reason classifies a rejected parameter.
type Reason string

const (
	ReasonUnknownField         Reason = "unknownField"
	ReasonIncompatibleOperator Reason = "incompatibleOperator"
	ReasonInvalidValue         Reason = "invalidValue"
)

// Issue describes one rejected query parameter.
type Issue struct {
	Key     string `json:"key"`
	Field   string `json:"field,omitempty"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// ValidationError lists every rejected parameter of a request, ordered by key.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.Key + ": " + issue.Message
	}
	return "invalid filter: " + strings.Join(parts, "; ")
}

// HasReason reports whether any issue carries reason.
func (e *ValidationError) HasReason(reason Reason) bool {
	for _, issue := range e.Issues {
		if issue.Reason == reason {
			return true
		}
	}
	return false
}

func newValidationError(issues []Issue) *ValidationError {
	sorted := append([]Issue(nil), issues...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return &ValidationError{Issues: sorted}
}
