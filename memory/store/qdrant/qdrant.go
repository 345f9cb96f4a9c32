// Package qdrant implements memory.Store against a Qdrant service
// reachable by host and port, using its HTTP API. One collection holds
// all records; user namespacing is enforced with payload filters.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/Gabrielmcp78/mem0-sub001/memory"
)

// Config configures the connection.
type Config struct {
	Host       string
	Port       int
	Collection string

	// Dimensions is the vector size used when the collection has to be
	// created (default: 384).
	Dimensions int

	// HTTPClient overrides the default client. Tests inject one here.
	HTTPClient *http.Client
}

// Store talks to a Qdrant instance.
type Store struct {
	baseURL    string
	collection string
	dimensions int
	client     *http.Client
}

// New connects to Qdrant and creates the collection if it is missing.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("qdrant host and port are required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 384
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	s := &Store{
		baseURL:    fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
		client:     client,
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// pointPayload is the payload stored with each point.
type pointPayload struct {
	UserID    string            `json:"user_id"`
	Data      string            `json:"data"`
	Hash      string            `json:"hash"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// userFilter matches points belonging to one user.
func userFilter(userID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": "user_id", "match": map[string]any{"value": userID}},
		},
	}
}

// Insert upserts a record as a point.
func (s *Store) Insert(ctx context.Context, rec *memory.Record) error {
	return s.upsert(ctx, rec)
}

// Update upserts the record under its existing ID.
func (s *Store) Update(ctx context.Context, rec *memory.Record) error {
	if _, err := s.Get(ctx, rec.UserID, rec.ID); err != nil {
		return err
	}
	return s.upsert(ctx, rec)
}

func (s *Store) upsert(ctx context.Context, rec *memory.Record) error {
	payload := pointPayload{
		UserID:    rec.UserID,
		Data:      rec.Content,
		Hash:      rec.Hash,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339Nano),
		Metadata:  rec.Metadata,
	}
	if !rec.UpdatedAt.IsZero() {
		payload.UpdatedAt = rec.UpdatedAt.Format(time.RFC3339Nano)
	}

	body := map[string]any{
		"points": []map[string]any{
			{
				"id":      rec.ID,
				"vector":  rec.Embedding(),
				"payload": payload,
			},
		},
	}
	if err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", s.collection), body, nil); err != nil {
		return fmt.Errorf("upsert point: %w", err)
	}
	log.Printf("[QDRANT] Upserted point id=%s user=%s", rec.ID, rec.UserID)
	return nil
}

// Query retrieves records by vector similarity, highest score first.
func (s *Store) Query(ctx context.Context, userID string, embedding []float32, limit int) ([]*memory.Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	body := map[string]any{
		"vector":       embedding,
		"limit":        limit,
		"with_payload": true,
		"filter":       userFilter(userID),
	}
	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", s.collection), body, &resp); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	recs := make([]*memory.Record, 0, len(resp.Result))
	for _, pt := range resp.Result {
		recs = append(recs, pt.record())
	}
	return recs, nil
}

// Get retrieves a record by ID, verifying ownership.
func (s *Store) Get(ctx context.Context, userID, id string) (*memory.Record, error) {
	body := map[string]any{
		"ids":          []string{id},
		"with_payload": true,
		"with_vector":  true,
	}
	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points", s.collection), body, &resp); err != nil {
		return nil, fmt.Errorf("retrieve point: %w", err)
	}
	if len(resp.Result) == 0 || resp.Result[0].Payload.UserID != userID {
		return nil, memory.ErrNotFound
	}
	return resp.Result[0].record(), nil
}

// List returns all of a user's records via the scroll API, newest first.
func (s *Store) List(ctx context.Context, userID string) ([]*memory.Record, error) {
	var recs []*memory.Record
	var offset any

	for {
		body := map[string]any{
			"filter":       userFilter(userID),
			"limit":        128,
			"with_payload": true,
		}
		if offset != nil {
			body["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points         []scoredPoint `json:"points"`
				NextPageOffset any           `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/scroll", s.collection), body, &resp); err != nil {
			return nil, fmt.Errorf("scroll points: %w", err)
		}
		for _, pt := range resp.Result.Points {
			recs = append(recs, pt.record())
		}
		if resp.Result.NextPageOffset == nil {
			break
		}
		offset = resp.Result.NextPageOffset
	}

	// Scroll order is by point ID; callers expect newest first.
	sortByCreatedAtDesc(recs)
	return recs, nil
}

// Delete removes a record permanently.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	body := map[string]any{"points": []string{id}}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", s.collection), body, nil); err != nil {
		return fmt.Errorf("delete point: %w", err)
	}
	return nil
}

// DeleteAll removes every point in the user's namespace.
func (s *Store) DeleteAll(ctx context.Context, userID string) error {
	body := map[string]any{"filter": userFilter(userID)}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", s.collection), body, nil); err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	log.Printf("[QDRANT] Deleted all points for user=%s", userID)
	return nil
}

// Reset drops and recreates the collection.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.do(ctx, http.MethodDelete, fmt.Sprintf("/collections/%s", s.collection), nil, nil); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	return s.ensureCollection(ctx)
}

// Close releases resources. The HTTP client needs no teardown.
func (s *Store) Close() error {
	return nil
}

// ensureCollection creates the collection when it does not exist yet.
func (s *Store) ensureCollection(ctx context.Context) error {
	err := s.do(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", s.collection), nil, nil)
	if err == nil {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimensions,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	log.Printf("[QDRANT] Created collection %s (dims=%d)", s.collection, s.dimensions)
	return nil
}

// do performs one API call, decoding the response into out when non-nil.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// scoredPoint is the point shape shared by search, retrieve and scroll
// responses.
type scoredPoint struct {
	ID      string       `json:"id"`
	Score   float64      `json:"score"`
	Payload pointPayload `json:"payload"`
	Vector  []float32    `json:"vector,omitempty"`
}

func (pt scoredPoint) record() *memory.Record {
	createdAt, _ := time.Parse(time.RFC3339Nano, pt.Payload.CreatedAt)
	var updatedAt time.Time
	if pt.Payload.UpdatedAt != "" {
		updatedAt, _ = time.Parse(time.RFC3339Nano, pt.Payload.UpdatedAt)
	}
	rec := memory.NewRecordFromStorage(
		pt.ID,
		pt.Payload.UserID,
		pt.Payload.Data,
		pt.Payload.Hash,
		createdAt,
		updatedAt,
		pt.Vector,
		pt.Payload.Metadata,
	)
	rec.Score = pt.Score
	return rec
}

func sortByCreatedAtDesc(recs []*memory.Record) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
}
