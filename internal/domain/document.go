package domain

import "time"

// DocumentStatus represents a document's position in the ingestion lifecycle
type DocumentStatus string

const (
	DocumentStatusUploading DocumentStatus = "uploading"
	DocumentStatusParsing   DocumentStatus = "parsing"
	DocumentStatusIndexing  DocumentStatus = "indexing"
	DocumentStatusReady     DocumentStatus = "ready"
	DocumentStatusError     DocumentStatus = "error"
)

// ContentType identifies the declared format of an uploaded document
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeMarkdown ContentType = "markdown"
)

// Document represents an uploaded source tracked through ingestion.
// Content holds the raw uploaded text until indexing completes.
type Document struct {
	ID           string
	Filename     string
	Source       string
	ContentType  ContentType
	Status       DocumentStatus
	ErrorMessage string
	ChunkCount   int
	FileSize     int64
	Content      string
	Metadata     map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsTerminal reports whether a status admits no further transitions.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusReady || s == DocumentStatusError
}

// statusOrder encodes the forward-only ingestion pipeline.
var statusOrder = map[DocumentStatus]int{
	DocumentStatusUploading: 0,
	DocumentStatusParsing:   1,
	DocumentStatusIndexing:  2,
	DocumentStatusReady:     3,
}

// CanTransition reports whether a document may move from one status to
// another. Statuses only move forward; error is reachable from any
// non-terminal state.
func CanTransition(from, to DocumentStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == DocumentStatusError {
		return true
	}
	fromOrder, ok := statusOrder[from]
	if !ok {
		return false
	}
	toOrder, ok := statusOrder[to]
	if !ok {
		return false
	}
	return toOrder > fromOrder
}

// ValidateDocument checks required fields before persistence.
func ValidateDocument(d *Document) error {
	if d.ID == "" {
		return NewDomainError(ErrCodeValidation, "document id is required")
	}
	if d.Source == "" {
		return NewDomainError(ErrCodeValidation, "document source is required")
	}
	switch d.Status {
	case DocumentStatusUploading, DocumentStatusParsing, DocumentStatusIndexing,
		DocumentStatusReady, DocumentStatusError:
	default:
		return NewDomainError(ErrCodeValidation, "invalid document status")
	}
	return nil
}
