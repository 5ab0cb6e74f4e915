package platform

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed platform call.
type Kind string

const (
	// KindRetryable covers transient failures: network errors, HTTP 429
	// and 5xx. The client retries these itself; callers only see them
	// once retries are exhausted.
	KindRetryable Kind = "retryable"

	// KindTerminal covers everything the client will not retry:
	// authorization failures, validation rejections, unclassified 4xx
	// and GraphQL-level errors.
	KindTerminal Kind = "terminal"

	// KindConflict is a terminal rejection indicating the requested
	// resource or relationship already exists.
	KindConflict Kind = "conflict"
)

// GraphQLError is a single entry of a GraphQL response's error array.
type GraphQLError struct {
	Message string `json:"message"`
}

// CallError is a classified platform call failure.
type CallError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Errors     []GraphQLError
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("platform call failed (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform call failed (%s): %s", e.Kind, e.Message)
}

// The platform does not return structured error codes, so "already
// exists" rejections can only be recognized by message inspection.
// Known markers live here rather than scattered at call sites.
const (
	markerAlreadyExists    = "already exists"
	markerDuplicate        = "duplicate"
	markerUniqueConstraint = "unique constraint"
	markerAlreadyMember    = "already a member"
)

var conflictMarkers = []string{
	markerAlreadyExists,
	markerDuplicate,
	markerUniqueConstraint,
	markerAlreadyMember,
}

// isConflictMessage reports whether a failure message indicates a
// duplicate/already-exists rejection. Matching is case-insensitive.
func isConflictMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range conflictMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// classifyStatus maps an HTTP status to a failure kind. 429 and 5xx
// are retryable; any other non-2xx status is terminal.
func classifyStatus(code int) Kind {
	if code == 429 || code >= 500 {
		return KindRetryable
	}
	return KindTerminal
}

// IsConflict reports whether err is a conflict-classified call failure.
func IsConflict(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Kind == KindConflict
}

// IsRetryable reports whether err is a retryable-classified call failure.
func IsRetryable(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Kind == KindRetryable
}

// TerminalError builds a terminal failure with a plain message. Used
// for failures detected locally, such as a missing project after a
// create conflict.
func TerminalError(format string, args ...any) *CallError {
	return &CallError{Kind: KindTerminal, Message: fmt.Sprintf(format, args...)}
}
