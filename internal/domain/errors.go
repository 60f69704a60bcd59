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

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so the sentinel errors
// below compare equal to their wrapped-with-cause variants.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
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

// Common domain error codes
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeCredentialsMissing   = "CREDENTIALS_MISSING"
	ErrCodeEmbeddingProvider    = "EMBEDDING_PROVIDER_ERROR"
	ErrCodeRetrievalUnavailable = "RETRIEVAL_UNAVAILABLE"
	ErrCodeStorage              = "STORAGE_ERROR"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidScope            = NewDomainError(ErrCodeValidation, "scope must set exactly one of user or team")
	ErrInvalidContentType      = NewDomainError(ErrCodeValidation, "invalid content type")
	ErrInvalidProcessingStatus = NewDomainError(ErrCodeValidation, "invalid processing status")
	ErrMissingRequiredField    = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrFragmentNotFound = NewDomainError(ErrCodeNotFound, "content fragment not found")
)

// Pipeline failure taxonomy
var (
	ErrCredentialsMissing   = NewDomainError(ErrCodeCredentialsMissing, "tenant has no usable embedding credentials")
	ErrEmbeddingProvider    = NewDomainError(ErrCodeEmbeddingProvider, "embedding provider failed after retries")
	ErrRetrievalUnavailable = NewDomainError(ErrCodeRetrievalUnavailable, "query embedding could not be produced")
	ErrStorage              = NewDomainError(ErrCodeStorage, "vector store operation failed")
)

// EmbeddingProviderError wraps a provider failure after retry exhaustion.
func EmbeddingProviderError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbeddingProvider, "embedding provider failed after retries", err)
}

// RetrievalUnavailableError wraps a failure to embed the query itself.
func RetrievalUnavailableError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeRetrievalUnavailable, "query embedding could not be produced", err)
}

// StorageError wraps a vector store insert or query failure.
func StorageError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStorage, "vector store operation failed", err)
}
