package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain errors along the pipeline's failure taxonomy.
type ErrorKind string

const (
	// KindInput marks a malformed or unreadable source document. Fatal for
	// that document; nothing is cached.
	KindInput ErrorKind = "input"
	// KindExtraction marks a per-page extraction/OCR failure. Non-fatal: the
	// page proceeds with empty text and is flagged in provenance.
	KindExtraction ErrorKind = "extraction"
	// KindRefinement marks a permanent refinement-provider rejection. The
	// pipeline falls back to the unrefined text.
	KindRefinement ErrorKind = "refinement"
	// KindTransient marks a retryable provider failure (rate limit, timeout).
	// Surfaced only after the retry budget is exhausted, at which point it
	// degrades to KindRefinement.
	KindTransient ErrorKind = "transient"
	// KindConsistency marks a fingerprint collision with divergent content.
	// Unreachable under correct hashing; surfaced, never silently resolved.
	KindConsistency ErrorKind = "consistency"
	KindConfig      ErrorKind = "config"
	KindIO          ErrorKind = "io"
)

// DomainError carries a kind, a human message, and an optional cause.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewError creates a new domain error.
func NewError(kind ErrorKind, message string, err error) *DomainError {
	return &DomainError{Kind: kind, Message: message, Err: err}
}

// Common error constructors
func InputError(message string, err error) *DomainError {
	return NewError(KindInput, message, err)
}

func ExtractionFailure(message string, err error) *DomainError {
	return NewError(KindExtraction, message, err)
}

func RefinementFailed(message string, err error) *DomainError {
	return NewError(KindRefinement, message, err)
}

func TransientProviderError(message string, err error) *DomainError {
	return NewError(KindTransient, message, err)
}

func ConsistencyError(message string, err error) *DomainError {
	return NewError(KindConsistency, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(KindConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(KindIO, message, err)
}

// IsKind reports whether err is a DomainError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
