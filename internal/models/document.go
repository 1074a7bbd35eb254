package models

import (
	"time"

	"gorm.io/datatypes"
)

// Document status values. Transitions are one-directional: a document starts
// as processing and ends as either completed or failed, never back.
const (
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

// Document source types.
const (
	SourceTypeFile    = "file"
	SourceTypeWebsite = "website"
)

// Document is one ingested document owned by a tenant. Rows are created when
// ingestion starts and are never mutated after reaching a terminal status.
type Document struct {
	ID              string         `gorm:"type:char(36);primaryKey"`
	OwnerID         string         `gorm:"index;not null;size:255"`
	Title           string         `gorm:"not null;size:512"`
	Filename        string         `gorm:"size:512"`
	Size            int64          // source size in bytes
	SourceType      string         `gorm:"not null;size:32"` // "file" or "website"
	Status          string         `gorm:"not null;size:32;index"`
	ChunkCount      int            // set when the document reaches completed
	VectorNamespace string         `gorm:"not null;size:255"` // tenant partition in the vector index
	Metadata        datatypes.JSON `gorm:"type:json"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Chunks []Chunk `gorm:"constraint:OnDelete:CASCADE"`
}

// Chunk is one bounded segment of a document's text, the unit of embedding
// and retrieval. Rows are created once during ingestion and removed only by
// cascading document deletion.
type Chunk struct {
	ID         string `gorm:"type:char(36);primaryKey"`
	DocumentID string `gorm:"type:char(36);index:idx_doc_chunk,unique;not null"`
	ChunkIndex int    `gorm:"index:idx_doc_chunk,unique;not null"` // ordinal, contiguous from 0 per document
	Content    string `gorm:"type:text;not null"`
	// ContentHash is stored for potential deduplication but is not consulted
	// anywhere: identical texts within one document are embedded twice.
	ContentHash string         `gorm:"size:64;index"`
	VectorID    string         `gorm:"uniqueIndex;not null;size:255"` // maps 1:1 to an entry in the vector index
	Metadata    datatypes.JSON `gorm:"type:json"`                     // denormalized content + provenance snapshot
	CreatedAt   time.Time
}
