// Package openai implements memory.Extractor on the Chat Completions
// API. With a custom base URL it works against any OpenAI-compatible
// inference endpoint, including local servers.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Gabrielmcp78/mem0-sub001/llm"
	"github.com/Gabrielmcp78/mem0-sub001/memory"
)

// Config configures the extractor.
type Config struct {
	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// APIKey authenticates the requests.
	APIKey string

	// BaseURL overrides the API endpoint (local inference servers).
	BaseURL string

	// MaxTokens caps response tokens per call (default: 2048).
	MaxTokens int
}

// Extractor calls a chat completion model for fact extraction and
// reconciliation.
type Extractor struct {
	client    openai.Client
	model     openai.ChatModel
	maxTokens int64
}

// New creates an OpenAI-compatible extractor.
func New(cfg Config) *Extractor {
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
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
		client:    openai.NewClient(opts...),
		model:     openai.ChatModel(cfg.Model),
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
	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               e.model,
		MaxCompletionTokens: openai.Int(e.maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
