package transcription

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies how a transcription attempt went wrong.
type FailureKind string

const (
	// FailureInvalidRequest marks a malformed request that was never sent
	// to the model.
	FailureInvalidRequest FailureKind = "invalid_request"

	// FailureModelUnavailable marks a transport problem reaching the
	// model or the endpoint fronting it.
	FailureModelUnavailable FailureKind = "model_unavailable"

	// FailureModelRefusal marks a completed call where the model declined
	// to produce output, typically safety filtering.
	FailureModelRefusal FailureKind = "model_refusal"

	// FailureMalformedOutput marks model output that fails the output
	// contract. The whole result is rejected, never repaired.
	FailureMalformedOutput FailureKind = "malformed_output"

	// FailureUpstream marks a non-success status from the fronting
	// service, with its message preserved verbatim.
	FailureUpstream FailureKind = "upstream_error"
)

// Error is the typed failure returned by invokers.
type Error struct {
	Kind    FailureKind
	Message string
	Details string
	Err     error
}

// Error formats the failure for logs and user-facing diagnostics.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf extracts the failure kind from err, or "" for untyped errors.
func KindOf(err error) FailureKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

func failure(kind FailureKind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// Invoker performs one transcription attempt. Implementations are
// stateless: each call is an independent attempt with no caching, no
// dedup, and no automatic retry. Repeated calls against the same audio
// may return different transcriptions.
type Invoker interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
}
