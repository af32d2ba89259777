package domain

import (
	"fmt"
	"time"
)

// FileStatus represents the processing status of a knowledge file
type FileStatus string

const (
	FileStatusProcessing FileStatus = "PROCESSING"
	FileStatusReady      FileStatus = "READY"
	FileStatusFailed     FileStatus = "FAILED"
	FileStatusDisabled   FileStatus = "DISABLED"
)

// KnowledgeFile represents an uploaded document registered for ingestion.
// Status transitions out of PROCESSING are owned by the ingestion pipeline;
// DISABLED is set externally to pause retrieval without deleting chunks.
type KnowledgeFile struct {
	ID           string
	UserID       string
	DomainID     string // optional tenant/site scope
	Filename     string
	FileType     string // declared MIME type
	StorageKey   string
	SizeBytes    int64
	Status       FileStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewKnowledgeFile creates a KnowledgeFile in PROCESSING status
func NewKnowledgeFile(id, userID, domainID, filename, fileType, storageKey string, sizeBytes int64, now time.Time) *KnowledgeFile {
	return &KnowledgeFile{
		ID:         id,
		UserID:     userID,
		DomainID:   domainID,
		Filename:   filename,
		FileType:   fileType,
		StorageKey: storageKey,
		SizeBytes:  sizeBytes,
		Status:     FileStatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ValidateKnowledgeFile validates a KnowledgeFile instance
func ValidateKnowledgeFile(f *KnowledgeFile) error {
	if f == nil {
		return fmt.Errorf("knowledge file cannot be nil")
	}

	if f.ID == "" {
		return fmt.Errorf("knowledge file ID is required")
	}

	if f.UserID == "" {
		return fmt.Errorf("knowledge file UserID is required")
	}

	if f.Filename == "" {
		return fmt.Errorf("knowledge file Filename is required")
	}

	if f.StorageKey == "" {
		return fmt.Errorf("knowledge file StorageKey is required")
	}

	if f.SizeBytes < 0 {
		return fmt.Errorf("knowledge file SizeBytes cannot be negative")
	}

	if !isValidFileStatus(f.Status) {
		return fmt.Errorf("knowledge file Status is invalid: %s", f.Status)
	}

	return nil
}

// isValidFileStatus checks if a FileStatus is valid
func isValidFileStatus(s FileStatus) bool {
	switch s {
	case FileStatusProcessing, FileStatusReady, FileStatusFailed, FileStatusDisabled:
		return true
	}
	return false
}
