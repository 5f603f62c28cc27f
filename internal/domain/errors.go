package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Description is the human-readable message without the code prefix.
func (e *DomainError) Description() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code so that wrapped copies of a sentinel compare equal to it.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// IsFatal reports whether the error signals a configuration fault (corpus/index
// misalignment, dimension mismatch, bad startup config) rather than a
// per-request failure.
func (e *DomainError) IsFatal() bool {
	switch e.Code {
	case ErrCodeIndex, ErrCodeLookup, ErrCodeConfiguration:
		return true
	}
	return false
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap attaches a cause to a sentinel while keeping its code and message.
func Wrap(sentinel *DomainError, err error) *DomainError {
	return NewDomainErrorWithCause(sentinel.Code, sentinel.Message, err)
}

// AsDomainError extracts a DomainError from err, or wraps it as an internal error.
func AsDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return NewDomainErrorWithCause(ErrCodeInternal, "internal error", err)
}

// Error codes
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeEmbedding            = "EMBEDDING_ERROR"
	ErrCodeIndex                = "INDEX_ERROR"
	ErrCodeIndexUnavailable     = "INDEX_UNAVAILABLE"
	ErrCodeLookup               = "LOOKUP_ERROR"
	ErrCodeGeneratorUnavailable = "GENERATOR_UNAVAILABLE"
	ErrCodeGeneratorQuota       = "GENERATOR_QUOTA"
	ErrCodeGeneratorMalformed   = "GENERATOR_MALFORMED"
	ErrCodeGeneratorRejected    = "GENERATOR_REJECTED"
	ErrCodeGeneratorTimeout     = "GENERATOR_TIMEOUT"
	ErrCodeConfiguration        = "CONFIGURATION_ERROR"
	ErrCodeCanceled             = "CANCELED"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyQuery     = NewDomainError(ErrCodeValidation, "query is required")
	ErrQueryTooLong   = NewDomainError(ErrCodeValidation, "query exceeds maximum length")
	ErrInvalidTopK    = NewDomainError(ErrCodeValidation, "k must be a positive integer")
	ErrInvalidRequest = NewDomainError(ErrCodeValidation, "invalid request body")
)

// Embedding errors
var (
	ErrEmptyText        = NewDomainError(ErrCodeEmbedding, "cannot embed empty text")
	ErrModelNotLoaded   = NewDomainError(ErrCodeEmbedding, "embedding model is not loaded")
	ErrWrongDimensions  = NewDomainError(ErrCodeEmbedding, "embedding has wrong dimensions")
	ErrEmbeddingFailure = NewDomainError(ErrCodeEmbedding, "failed to create embedding")
)

// Index and corpus errors
var (
	ErrDimensionMismatch = NewDomainError(ErrCodeIndex, "query vector dimension does not match index")
	ErrIndexUnavailable  = NewDomainError(ErrCodeIndexUnavailable, "vector search failed")
	ErrChunkNotFound     = NewDomainError(ErrCodeLookup, "chunk id does not resolve in corpus")
	ErrLookupFailure     = NewDomainError(ErrCodeLookup, "corpus lookup failed")
	ErrCorpusMisaligned  = NewDomainError(ErrCodeConfiguration, "vector index and corpus store are not row-aligned")
	ErrEmptyCorpus       = NewDomainError(ErrCodeConfiguration, "corpus has no rows")
)

// Generator errors
var (
	ErrGeneratorUnavailable = NewDomainError(ErrCodeGeneratorUnavailable, "generative model could not be reached")
	ErrGeneratorQuota       = NewDomainError(ErrCodeGeneratorQuota, "generative model quota exceeded")
	ErrGeneratorMalformed   = NewDomainError(ErrCodeGeneratorMalformed, "generative model returned no usable text")
	ErrGeneratorRejected    = NewDomainError(ErrCodeGeneratorRejected, "generative model rejected the request")
	ErrGeneratorTimeout     = NewDomainError(ErrCodeGeneratorTimeout, "generative model call timed out")
)

// Request lifecycle errors
var (
	ErrCanceled = NewDomainError(ErrCodeCanceled, "request canceled")
	ErrInternal = NewDomainError(ErrCodeInternal, "internal error")
)
