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
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConfiguration    = "CONFIGURATION_ERROR"
	ErrCodeProvider         = "PROVIDER_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidTopK          = NewDomainError(ErrCodeValidation, "top_k must be at least 1")
	ErrInvalidRole          = NewDomainError(ErrCodeValidation, "invalid message role")
	ErrInvalidLearningType  = NewDomainError(ErrCodeValidation, "invalid learning item type")
	ErrInvalidChapterStatus = NewDomainError(ErrCodeValidation, "invalid chapter status")
)

// Not found errors
var (
	ErrDocumentNotFound     = NewDomainError(ErrCodeNotFound, "document not found")
	ErrConversationNotFound = NewDomainError(ErrCodeNotFound, "conversation not found")
	ErrLearningItemNotFound = NewDomainError(ErrCodeNotFound, "learning item not found")
	ErrChapterNotFound      = NewDomainError(ErrCodeNotFound, "chapter not found")
)

// Configuration errors, fatal at startup
var (
	ErrInvalidChunkConfig    = NewDomainError(ErrCodeConfiguration, "chunk overlap must be smaller than chunk size")
	ErrDimensionMismatch     = NewDomainError(ErrCodeConfiguration, "embedding dimension does not match vector store dimension")
	ErrUnknownProvider       = NewDomainError(ErrCodeConfiguration, "unknown embedding provider")
	ErrUnknownVectorBackend  = NewDomainError(ErrCodeConfiguration, "unknown vector store backend")
	ErrMissingDatabaseURL    = NewDomainError(ErrCodeConfiguration, "database url is required for the selected backend")
	ErrMissingProviderAPIKey = NewDomainError(ErrCodeConfiguration, "api key is required for the selected embedding provider")
)

// Operation errors
var (
	ErrDocumentNotIndexable = NewDomainError(ErrCodeInvalidOperation, "document is not in an indexable state")
	ErrStatusRegression     = NewDomainError(ErrCodeInvalidOperation, "document status cannot move backwards")
)

// NewProviderError wraps a transient embedding/LLM failure so callers can
// decide to retry it.
func NewProviderError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeProvider, message, err)
}

// IsProviderError reports whether err is a retryable provider failure.
func IsProviderError(err error) bool {
	return hasCode(err, ErrCodeProvider)
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsConfiguration reports whether err is a startup configuration error.
func IsConfiguration(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

func hasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
