package domain

import "time"

// Chunk represents an embedded segment of a knowledge file.
// UserID and DomainID are denormalized from the parent file so search
// queries can scope without a join.
type Chunk struct {
	ID         string
	FileID     string
	UserID     string
	DomainID   string // optional tenant/site scope
	ChunkIndex int
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}
