package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so handlers can map them to HTTP
// status codes without string matching.
type ErrorKind string

const (
	ErrKindInvalidInput        ErrorKind = "invalid_input"
	ErrKindQuestNotActive      ErrorKind = "quest_not_active"
	ErrKindQuestExpired        ErrorKind = "quest_expired"
	ErrKindParticipantMismatch ErrorKind = "participant_mismatch"
	ErrKindNotAccepted         ErrorKind = "not_accepted"
	ErrKindAlreadyCompleted    ErrorKind = "already_completed"
	ErrKindVerificationFailed  ErrorKind = "verification_failed"
	ErrKindIdempotencyConflict ErrorKind = "idempotency_conflict"
	ErrKindUpstreamTransient   ErrorKind = "upstream_transient"
	ErrKindUpstreamTerminal    ErrorKind = "upstream_terminal"
)

// PipelineError carries a kind plus a human-readable reason. Stages return it
// instead of unwinding; callers branch on Kind.
type PipelineError struct {
	Kind   ErrorKind
	Reason string
	Err    error // optional wrapped cause
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func pipelineErr(kind ErrorKind, reason string) *PipelineError {
	return &PipelineError{Kind: kind, Reason: reason}
}

func pipelineWrap(kind ErrorKind, reason string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Reason: reason, Err: err}
}

// KindOf returns the pipeline kind of err, or empty when err is not a
// PipelineError.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// ReasonOf returns the human-readable reason of a pipeline error, falling
// back to err.Error() for plain errors.
func ReasonOf(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
