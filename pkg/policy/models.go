package policy

import (
	"time"

	"gorm.io/datatypes"
)

// Chunk is a unit of indexed policy text. Immutable once indexed; created at
// ingestion time and replaced only when its source document is reindexed.
type Chunk struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	DocumentName string    `json:"document_name"`
	Categories   []string  `json:"categories"`
	Text         string    `json:"text"`
	Vector       []float32 `json:"-"`
	SpanStart    int       `json:"span_start"`
	SpanEnd      int       `json:"span_end"`
	// Seq is the chunk's insertion order, used as the deterministic
	// tie-break key for equal similarity scores.
	Seq int `json:"seq"`
}

// HasCategory reports whether the chunk is tagged with the given category.
// An untagged chunk matches nothing; an empty filter matches everything and
// is handled by the caller.
func (c Chunk) HasCategory(category string) bool {
	for _, tag := range c.Categories {
		if tag == category {
			return true
		}
	}
	return false
}

// SearchResult pairs a chunk with its similarity to a query vector.
type SearchResult struct {
	Chunk      Chunk
	Similarity float64
}

// Document is the durable corpus row a policy document is stored as. The
// corpus table is the source of truth for index rebuilds.
type Document struct {
	ID          string         `gorm:"primaryKey;column:id"`
	Name        string         `gorm:"column:name"`
	Categories  datatypes.JSON `gorm:"column:categories"`
	Text        string         `gorm:"column:text"`
	ContentHash string         `gorm:"column:content_hash"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at"`
}

func (Document) TableName() string {
	return "policy_documents"
}
