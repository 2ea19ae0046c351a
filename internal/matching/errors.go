package matching

import (
	"errors"
	"fmt"
)

// ErrInvalidInput rejects matches that could never be persisted or
// attributed. It is the only error ComputeMatch propagates to callers.
var ErrInvalidInput = errors.New("invalid match input")

// ErrorKind classifies component scorer failures so the orchestrator can
// apply the score-0 substitution rule explicitly instead of swallowing
// arbitrary errors.
type ErrorKind string

const (
	KindEmbeddingUnavailable ErrorKind = "embedding_unavailable"
	KindScorerTimeout        ErrorKind = "scorer_timeout"
	KindScorerFailure        ErrorKind = "scorer_failure"
)

// ScorerError wraps a component failure with its kind. Scorer failures never
// abort a match; the orchestrator records them and substitutes a zero score.
type ScorerError struct {
	Kind      ErrorKind
	Component string
	Err       error
}

func (e *ScorerError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Kind, e.Err)
}

func (e *ScorerError) Unwrap() error {
	return e.Err
}

func newScorerError(kind ErrorKind, component string, err error) *ScorerError {
	return &ScorerError{Kind: kind, Component: component, Err: err}
}
