// Package chromem implements memory.Store on chromem-go, a pure Go
// embedded vector database. Zero external services; the default backend
// for local development and tests.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/Gabrielmcp78/mem0-sub001/memory"
)

// Store wraps chromem-go for vector storage. Each user gets their own
// collection for namespace isolation.
//
// chromem-go has no document listing API, so the store mirrors every
// record in an in-process index; Get, List, Update and Delete are served
// from the index while similarity queries go through chromem. With a
// persistence path configured the index is saved as JSON next to the
// chromem data and reloaded on open.
type Store struct {
	db      *chromem.DB
	path    string
	indexMu sync.RWMutex
	index   map[string]map[string]*storedRecord // userID -> recordID -> record

	colMu       sync.Mutex
	collections map[string]*chromem.Collection
}

// storedRecord is the JSON shape mirrored in the index file.
type storedRecord struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Content   string            `json:"content"`
	Hash      string            `json:"hash"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Embedding []float32         `json:"embedding,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// New creates an in-memory store.
func New() (*Store, error) {
	return &Store{
		db:          chromem.NewDB(),
		index:       make(map[string]map[string]*storedRecord),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// NewPersistent creates a store that writes chromem data and the record
// index under path.
func NewPersistent(path string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open persistent db: %w", err)
	}
	s := &Store{
		db:          db,
		path:        path,
		index:       make(map[string]map[string]*storedRecord),
		collections: make(map[string]*chromem.Collection),
	}
	if err := s.loadIndex(); err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	return s, nil
}

// collection returns the chromem collection for a user, creating it on
// first use.
func (s *Store) collection(userID string) (*chromem.Collection, error) {
	s.colMu.Lock()
	defer s.colMu.Unlock()

	if col, ok := s.collections[userID]; ok {
		return col, nil
	}

	name := fmt.Sprintf("user_%s", userID)
	if userID == "" {
		name = "global"
	}
	col, err := s.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[userID] = col
	return col, nil
}

// Insert saves a record with its embedding.
func (s *Store) Insert(ctx context.Context, rec *memory.Record) error {
	col, err := s.collection(rec.UserID)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Content,
		Embedding: rec.Embedding(),
		Metadata:  docMetadata(rec),
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	s.indexMu.Lock()
	if s.index[rec.UserID] == nil {
		s.index[rec.UserID] = make(map[string]*storedRecord)
	}
	s.index[rec.UserID][rec.ID] = toStored(rec)
	s.indexMu.Unlock()

	log.Printf("[CHROMEM] Stored record id=%s user=%s", rec.ID, rec.UserID)
	return s.saveIndex()
}

// Query retrieves records by vector similarity, highest first.
func (s *Store) Query(ctx context.Context, userID string, embedding []float32, limit int) ([]*memory.Record, error) {
	col, err := s.collection(userID)
	if err != nil {
		return nil, err
	}

	// chromem requires nResults <= collection size
	if count := col.Count(); count < limit {
		limit = count
	}
	if limit == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	recs := make([]*memory.Record, 0, len(results))
	for _, result := range results {
		rec := recordFromResult(result)
		rec.UserID = userID
		recs = append(recs, rec)
	}
	return recs, nil
}

// Get retrieves a record by ID from the index.
func (s *Store) Get(ctx context.Context, userID, id string) (*memory.Record, error) {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()

	stored, ok := s.index[userID][id]
	if !ok {
		return nil, memory.ErrNotFound
	}
	return fromStored(stored), nil
}

// List returns all of a user's records, newest first.
func (s *Store) List(ctx context.Context, userID string) ([]*memory.Record, error) {
	s.indexMu.RLock()
	recs := make([]*memory.Record, 0, len(s.index[userID]))
	for _, stored := range s.index[userID] {
		recs = append(recs, fromStored(stored))
	}
	s.indexMu.RUnlock()

	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}

// Update replaces an existing record's content and embedding.
func (s *Store) Update(ctx context.Context, rec *memory.Record) error {
	s.indexMu.RLock()
	_, ok := s.index[rec.UserID][rec.ID]
	s.indexMu.RUnlock()
	if !ok {
		return memory.ErrNotFound
	}

	col, err := s.collection(rec.UserID)
	if err != nil {
		return err
	}

	// chromem has no in-place update; replace the document.
	if err := col.Delete(ctx, nil, nil, rec.ID); err != nil {
		return fmt.Errorf("delete old document: %w", err)
	}
	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Content,
		Embedding: rec.Embedding(),
		Metadata:  docMetadata(rec),
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	s.indexMu.Lock()
	s.index[rec.UserID][rec.ID] = toStored(rec)
	s.indexMu.Unlock()

	log.Printf("[CHROMEM] Updated record id=%s user=%s", rec.ID, rec.UserID)
	return s.saveIndex()
}

// Delete removes a record permanently.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	s.indexMu.Lock()
	if _, ok := s.index[userID][id]; !ok {
		s.indexMu.Unlock()
		return memory.ErrNotFound
	}
	delete(s.index[userID], id)
	s.indexMu.Unlock()

	col, err := s.collection(userID)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return s.saveIndex()
}

// DeleteAll removes every record in the user's namespace.
func (s *Store) DeleteAll(ctx context.Context, userID string) error {
	s.indexMu.Lock()
	delete(s.index, userID)
	s.indexMu.Unlock()

	s.colMu.Lock()
	delete(s.collections, userID)
	s.colMu.Unlock()

	name := fmt.Sprintf("user_%s", userID)
	if userID == "" {
		name = "global"
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return s.saveIndex()
}

// Reset removes all records for all users.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.db.Reset(); err != nil {
		return fmt.Errorf("reset db: %w", err)
	}

	s.colMu.Lock()
	s.collections = make(map[string]*chromem.Collection)
	s.colMu.Unlock()

	s.indexMu.Lock()
	s.index = make(map[string]map[string]*storedRecord)
	s.indexMu.Unlock()

	log.Printf("[CHROMEM] Store reset")
	return s.saveIndex()
}

// Close releases resources. chromem keeps everything in memory or has
// already flushed to disk, nothing to do.
func (s *Store) Close() error {
	return nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.path, "records.json")
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	return json.Unmarshal(data, &s.index)
}

func (s *Store) saveIndex() error {
	if s.path == "" {
		return nil
	}
	s.indexMu.RLock()
	data, err := json.Marshal(s.index)
	s.indexMu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	return os.WriteFile(s.indexPath(), data, 0o644)
}

func docMetadata(rec *memory.Record) map[string]string {
	metadata := map[string]string{
		"user_id":    rec.UserID,
		"hash":       rec.Hash,
		"created_at": rec.CreatedAt.Format(time.RFC3339Nano),
	}
	if !rec.UpdatedAt.IsZero() {
		metadata["updated_at"] = rec.UpdatedAt.Format(time.RFC3339Nano)
	}
	for k, v := range rec.Metadata {
		metadata[k] = v
	}
	return metadata
}

func recordFromResult(result chromem.Result) *memory.Record {
	createdAt, _ := time.Parse(time.RFC3339Nano, result.Metadata["created_at"])
	var updatedAt time.Time
	if v := result.Metadata["updated_at"]; v != "" {
		updatedAt, _ = time.Parse(time.RFC3339Nano, v)
	}

	metadata := make(map[string]string)
	for k, v := range result.Metadata {
		switch k {
		case "user_id", "hash", "created_at", "updated_at":
		default:
			metadata[k] = v
		}
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	rec := memory.NewRecordFromStorage(
		result.ID,
		result.Metadata["user_id"],
		result.Content,
		result.Metadata["hash"],
		createdAt,
		updatedAt,
		result.Embedding,
		metadata,
	)
	rec.Score = float64(result.Similarity)
	return rec
}

func toStored(rec *memory.Record) *storedRecord {
	return &storedRecord{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Content:   rec.Content,
		Hash:      rec.Hash,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Embedding: rec.Embedding(),
		Metadata:  rec.Metadata,
	}
}

func fromStored(stored *storedRecord) *memory.Record {
	return memory.NewRecordFromStorage(
		stored.ID,
		stored.UserID,
		stored.Content,
		stored.Hash,
		stored.CreatedAt,
		stored.UpdatedAt,
		stored.Embedding,
		stored.Metadata,
	)
}
