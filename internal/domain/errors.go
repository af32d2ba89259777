package domain

import "fmt"

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

// Domain error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeFileNotFound        = "FILE_NOT_FOUND"
	ErrCodeJobNotFound         = "INGESTION_JOB_NOT_FOUND"
	ErrCodeUnsupportedFileType = "UNSUPPORTED_FILE_TYPE"
	ErrCodeEmptyDocument       = "EMPTY_DOCUMENT"
	ErrCodeNoChunksProduced    = "NO_CHUNKS_PRODUCED"
	ErrCodeEmbeddingFailure    = "EMBEDDING_FAILURE"
	ErrCodeStoreWriteFailure   = "STORE_WRITE_FAILURE"
	ErrCodeStoreQueryFailure   = "STORE_QUERY_FAILURE"
	ErrCodeInvalidOperation    = "INVALID_OPERATION"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// Not found errors
var (
	ErrFileNotFound         = NewDomainError(ErrCodeFileNotFound, "knowledge file not found")
	ErrIngestionJobNotFound = NewDomainError(ErrCodeJobNotFound, "ingestion job not found")
)

// Invalid operation errors
var (
	ErrFileDisabled = NewDomainError(ErrCodeInvalidOperation, "file is disabled")
)

// Pipeline errors
var (
	ErrEmptyDocument    = NewDomainError(ErrCodeEmptyDocument, "document contains no extractable text")
	ErrNoChunksProduced = NewDomainError(ErrCodeNoChunksProduced, "chunking produced no chunks")
)

// Validation errors
var (
	ErrInvalidFileStatus         = NewDomainError(ErrCodeValidation, "invalid file status")
	ErrInvalidIngestionJobStatus = NewDomainError(ErrCodeValidation, "invalid ingestion job status")
	ErrMissingRequiredField      = NewDomainError(ErrCodeValidation, "missing required field")
)

// NewUnsupportedFileTypeError creates an error carrying the rejected type string
func NewUnsupportedFileTypeError(fileType string) *DomainError {
	return NewDomainError(ErrCodeUnsupportedFileType, fmt.Sprintf("unsupported file type: %q", fileType))
}

// NewEmbeddingFailure wraps an embedding provider error
func NewEmbeddingFailure(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbeddingFailure, "embedding generation failed", err)
}

// NewStoreWriteFailure wraps a chunk store write error
func NewStoreWriteFailure(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStoreWriteFailure, "chunk store write failed", err)
}

// NewStoreQueryFailure wraps a chunk store query error
func NewStoreQueryFailure(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStoreQueryFailure, "chunk store query failed", err)
}
