package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewIngestionJob(t *testing.T) {
	now := time.Now().UTC()
	job := NewIngestionJob("job-1", "file-1", now)

	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, "file-1", job.FileID)
	assert.Equal(t, IngestionJobStatusPending, job.Status)
	assert.Equal(t, int32(0), job.Retries)
	assert.Nil(t, job.ProcessedAt)
}

func TestValidateIngestionJob_Valid(t *testing.T) {
	job := NewIngestionJob("job-1", "file-1", time.Now().UTC())
	assert.NoError(t, ValidateIngestionJob(job))
}

func TestValidateIngestionJob_Nil(t *testing.T) {
	assert.Error(t, ValidateIngestionJob(nil))
}

func TestValidateIngestionJob_MissingFileID(t *testing.T) {
	job := NewIngestionJob("job-1", "", time.Now().UTC())
	err := ValidateIngestionJob(job)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "FileID is required")
}

func TestValidateIngestionJob_InvalidStatus(t *testing.T) {
	job := NewIngestionJob("job-1", "file-1", time.Now().UTC())
	job.Status = IngestionJobStatus("paused")
	assert.Error(t, ValidateIngestionJob(job))
}

func TestValidateIngestionJob_NegativeRetries(t *testing.T) {
	job := NewIngestionJob("job-1", "file-1", time.Now().UTC())
	job.Retries = -1
	assert.Error(t, ValidateIngestionJob(job))
}

func TestDomainError_Error(t *testing.T) {
	err := NewUnsupportedFileTypeError("image/png")
	assert.Equal(t, ErrCodeUnsupportedFileType, err.Code)
	assert.Contains(t, err.Error(), `image/png`)
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewEmbeddingFailure(cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), ErrCodeEmbeddingFailure)
	assert.Contains(t, err.Error(), "connection reset")
}
