// Package anthropic implements memory.Extractor on the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Gabrielmcp78/mem0-sub001/llm"
	"github.com/Gabrielmcp78/mem0-sub001/memory"
)

// Config configures the extractor.
type Config struct {
	// Model is the Claude model to use (default: claude-sonnet-4-20250514).
	Model string

	// APIKey authenticates the requests. Empty falls back to the SDK's
	// environment lookup.
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// MaxTokens caps response tokens per call (default: 2048).
	MaxTokens int
}

// Extractor calls Claude for fact extraction and reconciliation.
type Extractor struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// New creates an Anthropic-backed extractor.
func New(cfg Config) *Extractor {
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Extractor{
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(cfg.Model),
		maxTokens: int64(cfg.MaxTokens),
	}
}

// ExtractFacts distills messages into memorable facts.
func (e *Extractor) ExtractFacts(ctx context.Context, msgs []memory.Message) ([]string, error) {
	raw, err := e.complete(ctx, llm.FactPrompt, llm.FactsInput(msgs))
	if err != nil {
		return nil, err
	}
	return llm.ParseFacts(raw)
}

// ReconcileMemories decides how facts combine with existing memories.
func (e *Extractor) ReconcileMemories(ctx context.Context, facts []string, existing []*memory.Record) ([]memory.Action, error) {
	raw, err := e.complete(ctx, llm.ReconcilePrompt, llm.ReconcileInput(facts, existing))
	if err != nil {
		return nil, err
	}
	return llm.ParseActions(raw, existing)
}

// complete performs one system+user exchange and returns the text reply.
func (e *Extractor) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
