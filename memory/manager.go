package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Config holds Manager configuration.
type Config struct {
	// MinScore is the minimum similarity for search results [0.0-1.0].
	// Default: 0.3
	// Note: tiny local models (all-MiniLM-L6-v2) produce lower scores
	// (~0.35 for similar text); API models score in the 0.7-0.85 range.
	MinScore float64

	// SearchLimit is the default number of results for Search.
	// Default: 10
	SearchLimit int

	// CandidateLimit is how many similar memories are fetched per fact
	// during reconciliation. Default: 5
	CandidateLimit int
}

// DefaultConfig returns sensible defaults for local use.
var DefaultConfig = &Config{
	MinScore:       0.3,
	SearchLimit:    10,
	CandidateLimit: 5,
}

// Option configures the Manager.
type Option func(*Manager)

// WithExtractor enables LLM fact extraction and reconciliation for Add.
func WithExtractor(e Extractor) Option {
	return func(m *Manager) {
		m.extractor = e
	}
}

// Manager orchestrates memory operations. It is the public API the rest
// of the repository (CLI, stdio server, websocket server) talks to.
type Manager struct {
	store     Store
	embedder  Embedder
	extractor Extractor // Optional: nil disables fact extraction
	config    *Config
}

// New creates a Manager on top of a store and an embedder.
func New(store Store, embedder Embedder, config *Config, opts ...Option) *Manager {
	if config == nil {
		config = DefaultConfig
	}
	if config.SearchLimit <= 0 {
		config.SearchLimit = DefaultConfig.SearchLimit
	}
	if config.CandidateLimit <= 0 {
		config.CandidateLimit = DefaultConfig.CandidateLimit
	}
	m := &Manager{
		store:    store,
		embedder: embedder,
		config:   config,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add stores what the messages reveal about the user. With an Extractor
// configured, messages are distilled into facts and reconciled against
// similar existing memories; without one, non-system message content is
// stored directly with hash deduplication.
//
// The returned actions describe every applied change (NONE decisions are
// omitted). Extraction or reconciliation failures degrade to the
// hash-dedup path rather than failing the call.
func (m *Manager) Add(ctx context.Context, userID string, msgs []Message) ([]Action, error) {
	facts := m.extractFacts(ctx, msgs)
	if len(facts) == 0 {
		log.Printf("[MEMORY] Nothing to store (no facts extracted)")
		return nil, nil
	}

	embeddings, err := m.embedder.EmbedBatch(ctx, facts)
	if err != nil {
		return nil, fmt.Errorf("embed facts: %w", err)
	}
	factEmbedding := make(map[string][]float32, len(facts))
	for i, fact := range facts {
		factEmbedding[fact] = embeddings[i]
	}

	// Gather similar existing memories as reconciliation candidates.
	seen := make(map[string]bool)
	var existing []*Record
	for _, fact := range facts {
		recs, err := m.store.Query(ctx, userID, factEmbedding[fact], m.config.CandidateLimit)
		if err != nil {
			return nil, fmt.Errorf("query candidates: %w", err)
		}
		for _, rec := range recs {
			if !seen[rec.ID] {
				seen[rec.ID] = true
				existing = append(existing, rec)
			}
		}
	}

	actions := m.reconcile(ctx, facts, existing)

	var applied []Action
	for _, act := range actions {
		switch act.Event {
		case EventAdd:
			rec := NewRecord(userID, act.Content, nil)
			emb, ok := factEmbedding[act.Content]
			if !ok {
				emb, err = m.embedder.Embed(ctx, act.Content)
				if err != nil {
					log.Printf("[MEMORY] Failed to embed %q: %v", truncateLog(act.Content, 50), err)
					continue
				}
			}
			rec.SetEmbedding(emb)
			if err := m.store.Insert(ctx, rec); err != nil {
				log.Printf("[MEMORY] Failed to store %q: %v", truncateLog(act.Content, 50), err)
				continue
			}
			act.ID = rec.ID
			applied = append(applied, act)

		case EventUpdate:
			rec, err := m.store.Get(ctx, userID, act.ID)
			if err != nil {
				log.Printf("[MEMORY] Update skipped, %s: %v", act.ID, err)
				continue
			}
			act.OldContent = rec.Content
			rec.SetContent(act.Content)
			emb, err := m.embedder.Embed(ctx, act.Content)
			if err != nil {
				log.Printf("[MEMORY] Failed to embed update for %s: %v", act.ID, err)
				continue
			}
			rec.SetEmbedding(emb)
			if err := m.store.Update(ctx, rec); err != nil {
				log.Printf("[MEMORY] Failed to update %s: %v", act.ID, err)
				continue
			}
			applied = append(applied, act)

		case EventDelete:
			if rec, err := m.store.Get(ctx, userID, act.ID); err == nil {
				act.OldContent = rec.Content
			}
			if err := m.store.Delete(ctx, userID, act.ID); err != nil {
				log.Printf("[MEMORY] Failed to delete %s: %v", act.ID, err)
				continue
			}
			applied = append(applied, act)
		}
	}

	log.Printf("[MEMORY] Add complete: %d action(s) applied for user=%s", len(applied), userID)
	return applied, nil
}

// Search retrieves the user's memories most similar to query.
// A non-positive limit falls back to the configured SearchLimit.
func (m *Manager) Search(ctx context.Context, userID, query string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = m.config.SearchLimit
	}

	embedding, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	recs, err := m.store.Query(ctx, userID, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}

	// Filter by similarity floor
	var results []*Record
	for _, rec := range recs {
		if rec.Score >= m.config.MinScore {
			results = append(results, rec)
		}
	}

	log.Printf("[MEMORY] Search %q: %d result(s) (%d before filtering)",
		truncateLog(query, 50), len(results), len(recs))
	return results, nil
}

// GetAll returns every memory in the user's namespace, newest first.
func (m *Manager) GetAll(ctx context.Context, userID string) ([]*Record, error) {
	recs, err := m.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list store: %w", err)
	}
	return recs, nil
}

// Get returns a single memory by ID.
func (m *Manager) Get(ctx context.Context, userID, id string) (*Record, error) {
	return m.store.Get(ctx, userID, id)
}

// Delete removes a single memory.
func (m *Manager) Delete(ctx context.Context, userID, id string) error {
	if err := m.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	log.Printf("[MEMORY] Deleted memory %s for user=%s", id, userID)
	return nil
}

// DeleteAll removes every memory in the user's namespace.
func (m *Manager) DeleteAll(ctx context.Context, userID string) error {
	if err := m.store.DeleteAll(ctx, userID); err != nil {
		return err
	}
	log.Printf("[MEMORY] Deleted all memories for user=%s", userID)
	return nil
}

// Reset wipes the entire store, all users included.
func (m *Manager) Reset(ctx context.Context) error {
	return m.store.Reset(ctx)
}

// extractFacts runs LLM fact extraction, falling back to raw message
// content when no extractor is configured or extraction fails.
func (m *Manager) extractFacts(ctx context.Context, msgs []Message) []string {
	if m.extractor != nil {
		facts, err := m.extractor.ExtractFacts(ctx, msgs)
		if err == nil {
			log.Printf("[MEMORY] Extracted %d fact(s) from %d message(s)", len(facts), len(msgs))
			return dropEmpty(facts)
		}
		log.Printf("[MEMORY] Fact extraction failed, storing raw content: %v", err)
	}
	return rawFacts(msgs)
}

// reconcile asks the extractor how facts combine with existing memories,
// falling back to hash deduplication on failure or when no extractor is set.
func (m *Manager) reconcile(ctx context.Context, facts []string, existing []*Record) []Action {
	if m.extractor != nil {
		actions, err := m.extractor.ReconcileMemories(ctx, facts, existing)
		if err == nil {
			return actions
		}
		log.Printf("[MEMORY] Reconciliation failed, falling back to dedup: %v", err)
	}
	return dedupActions(facts, existing)
}

// dedupActions is the extractor-free policy: add each fact unless the
// same user already stores identical content.
func dedupActions(facts []string, existing []*Record) []Action {
	known := make(map[string]bool, len(existing))
	for _, rec := range existing {
		known[rec.Hash] = true
	}

	var actions []Action
	for _, fact := range facts {
		if known[ContentHash(fact)] {
			continue
		}
		known[ContentHash(fact)] = true
		actions = append(actions, Action{Event: EventAdd, Content: fact})
	}
	return actions
}

// rawFacts returns the non-empty content of user and assistant messages.
func rawFacts(msgs []Message) []string {
	var facts []string
	for _, msg := range msgs {
		if msg.Role == "system" {
			continue
		}
		if content := strings.TrimSpace(msg.Content); content != "" {
			facts = append(facts, content)
		}
	}
	return facts
}

func dropEmpty(facts []string) []string {
	var out []string
	for _, f := range facts {
		if strings.TrimSpace(f) != "" {
			out = append(out, f)
		}
	}
	return out
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
