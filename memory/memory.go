package memory

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store implementations when a memory ID does
// not exist in the user's namespace.
var ErrNotFound = errors.New("memory not found")

// Message is a single conversational message handed to Manager.Add.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store is the vector storage backend interface.
// Implementations: chromem.Store (embedded), qdrant.Store (remote service).
//
// All operations are scoped to a user namespace: a record inserted for one
// UserID is never visible to queries for another.
type Store interface {
	// Insert saves a record. The record must have its embedding set.
	Insert(ctx context.Context, rec *Record) error

	// Query retrieves records by vector similarity, highest score first.
	Query(ctx context.Context, userID string, embedding []float32, limit int) ([]*Record, error)

	// Get retrieves a specific record by ID.
	Get(ctx context.Context, userID, id string) (*Record, error)

	// List returns all records for a user, newest first.
	List(ctx context.Context, userID string) ([]*Record, error)

	// Update replaces the content, embedding and metadata of an existing record.
	Update(ctx context.Context, rec *Record) error

	// Delete removes a record permanently.
	Delete(ctx context.Context, userID, id string) error

	// DeleteAll removes every record in the user's namespace.
	DeleteAll(ctx context.Context, userID string) error

	// Reset removes all records for all users.
	Reset(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings.
// Implementations: mock.Embedder (testing), onnx.Embedder (local model),
// openai.Embedder (API-based, including OpenAI-compatible local endpoints).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts multiple texts in one call where the backend
	// supports it.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Event classifies how a fact reconciles with existing memories.
type Event string

const (
	// EventAdd stores the fact as a new memory.
	EventAdd Event = "ADD"

	// EventUpdate rewrites an existing memory with refined content.
	EventUpdate Event = "UPDATE"

	// EventDelete removes a memory contradicted by the new fact.
	EventDelete Event = "DELETE"

	// EventNone leaves the store unchanged (fact already known).
	EventNone Event = "NONE"
)

// Action is a single reconciliation decision produced by an Extractor
// and applied by the Manager. For UPDATE and DELETE, ID names the
// affected memory; OldContent carries the previous text for callers.
type Action struct {
	Event      Event  `json:"event"`
	ID         string `json:"id,omitempty"`
	Content    string `json:"text"`
	OldContent string `json:"old_memory,omitempty"`
}

// Extractor is the LLM-backed half of the add pipeline.
// Implementations: anthropic.Extractor, openai.Extractor.
type Extractor interface {
	// ExtractFacts distills messages into standalone facts worth
	// remembering. An empty slice means nothing memorable was said.
	ExtractFacts(ctx context.Context, msgs []Message) ([]string, error)

	// ReconcileMemories decides how new facts combine with similar
	// existing memories.
	ReconcileMemories(ctx context.Context, facts []string, existing []*Record) ([]Action, error)
}
