// Package apperr defines the typed error taxonomy shared by all services.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary-layer translation.
type Kind int

const (
	// KindInvalidInput marks bad caller arguments, rejected before any external call.
	KindInvalidInput Kind = iota + 1
	// KindExtractionFailure marks a text-extraction failure on uploaded content.
	KindExtractionFailure
	// KindEmbeddingFailure marks an embedding provider failure after retries.
	KindEmbeddingFailure
	// KindGenerationFailure marks an empty or failed LLM completion.
	KindGenerationFailure
	// KindNotFound marks a missing resource looked up by id.
	KindNotFound
	// KindOwnershipViolation marks an actor operating on a resource it does not own.
	KindOwnershipViolation
	// KindDataIntegrity marks an internal consistency violation, e.g. embedding
	// count not matching chunk count.
	KindDataIntegrity
	// KindChatFailure is the umbrella wrapping any step failure inside chat processing.
	KindChatFailure
)

// String returns the stable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindExtractionFailure:
		return "extraction_failure"
	case KindEmbeddingFailure:
		return "embedding_failure"
	case KindGenerationFailure:
		return "generation_failure"
	case KindNotFound:
		return "not_found"
	case KindOwnershipViolation:
		return "ownership_violation"
	case KindDataIntegrity:
		return "data_integrity"
	case KindChatFailure:
		return "chat_failure"
	default:
		return "unknown"
	}
}

// Error is a classified error with an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error wrapping a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or 0 if err carries no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Is reports whether err or any error in its chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
