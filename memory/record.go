package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Record is a stored memory: a unit of text plus metadata, owned by a
// user. Score is only populated on records returned from Query/Search.
type Record struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Content   string            `json:"memory"`
	Hash      string            `json:"hash"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at,omitempty"`
	Score     float64           `json:"score,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`

	embedding []float32
}

// NewRecord creates a Record for content owned by userID.
// The embedding must be set separately before the record is inserted.
func NewRecord(userID, content string, metadata map[string]string) *Record {
	return &Record{
		ID:        uuid.New().String(),
		UserID:    userID,
		Content:   content,
		Hash:      ContentHash(content),
		CreatedAt: time.Now().UTC(),
		Metadata:  metadata,
	}
}

// NewRecordFromStorage rebuilds a Record from stored data.
// Used by Store implementations when deserializing.
func NewRecordFromStorage(id, userID, content, hash string, createdAt, updatedAt time.Time, embedding []float32, metadata map[string]string) *Record {
	return &Record{
		ID:        id,
		UserID:    userID,
		Content:   content,
		Hash:      hash,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Metadata:  metadata,
		embedding: embedding,
	}
}

// Embedding returns the record's embedding vector.
func (r *Record) Embedding() []float32 {
	return r.embedding
}

// SetEmbedding sets the record's embedding vector.
func (r *Record) SetEmbedding(emb []float32) {
	r.embedding = emb
}

// SetContent replaces the record's text, refreshing hash and UpdatedAt.
// The caller must re-embed and Update the record afterwards.
func (r *Record) SetContent(content string) {
	r.Content = content
	r.Hash = ContentHash(content)
	r.UpdatedAt = time.Now().UTC()
}

// ContentHash returns the hex SHA-256 of content. Records with equal
// hashes for the same user are considered duplicates.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
