package main

import (
	"context"
	"fmt"
	"log"

	"github.com/Gabrielmcp78/mem0-sub001/config"
	llmanthropic "github.com/Gabrielmcp78/mem0-sub001/llm/anthropic"
	llmopenai "github.com/Gabrielmcp78/mem0-sub001/llm/openai"
	"github.com/Gabrielmcp78/mem0-sub001/memory"
	embmock "github.com/Gabrielmcp78/mem0-sub001/memory/embedder/mock"
	embopenai "github.com/Gabrielmcp78/mem0-sub001/memory/embedder/openai"
	"github.com/Gabrielmcp78/mem0-sub001/memory/store/chromem"
	"github.com/Gabrielmcp78/mem0-sub001/memory/store/qdrant"
)

// newManager assembles the store, embedder and extractor described by
// cfg into a memory.Manager. The returned cleanup releases everything
// in reverse order.
func newManager(ctx context.Context, cfg *config.Config) (*memory.Manager, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	embedder, closeEmbedder, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, nil, err
	}

	cached, err := memory.NewCachedEmbedder(embedder, 10_000)
	if err != nil {
		closeEmbedder()
		return nil, nil, err
	}

	store, err := newStore(ctx, cfg, cached.Dimensions())
	if err != nil {
		cached.Close()
		closeEmbedder()
		return nil, nil, err
	}

	opts := []memory.Option{}
	switch cfg.LLM.Provider {
	case "anthropic":
		opts = append(opts, memory.WithExtractor(llmanthropic.New(llmanthropic.Config{
			Model:     cfg.LLM.Model,
			APIKey:    cfg.LLM.APIKey,
			BaseURL:   cfg.LLM.BaseURL,
			MaxTokens: cfg.LLM.MaxTokens,
		})))
	case "openai":
		opts = append(opts, memory.WithExtractor(llmopenai.New(llmopenai.Config{
			Model:     cfg.LLM.Model,
			APIKey:    cfg.LLM.APIKey,
			BaseURL:   cfg.LLM.BaseURL,
			MaxTokens: cfg.LLM.MaxTokens,
		})))
	case "":
		// Extraction disabled; Add stores raw content with dedup.
	}

	mgr := memory.New(store, cached, &memory.Config{
		MinScore:    cfg.MinScore,
		SearchLimit: cfg.SearchLimit,
	}, opts...)

	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Printf("[MEMCTL] Store close: %v", err)
		}
		cached.Close()
		closeEmbedder()
	}
	return mgr, cleanup, nil
}

// newStore builds the configured vector store. The store's vector size
// follows the embedder's dimensions.
func newStore(ctx context.Context, cfg *config.Config, dims int) (memory.Store, error) {
	switch cfg.VectorStore.Provider {
	case "chromem":
		if cfg.VectorStore.Path != "" {
			return chromem.NewPersistent(cfg.VectorStore.Path)
		}
		return chromem.New()
	case "qdrant":
		return qdrant.New(ctx, qdrant.Config{
			Host:       cfg.VectorStore.Host,
			Port:       cfg.VectorStore.Port,
			Collection: cfg.VectorStore.Collection,
			Dimensions: dims,
		})
	default:
		return nil, fmt.Errorf("unknown vector store provider: %q", cfg.VectorStore.Provider)
	}
}

// newEmbedder builds the configured embedder plus its close function.
func newEmbedder(cfg config.Embedder) (memory.Embedder, func(), error) {
	switch cfg.Provider {
	case "mock":
		return embmock.New(cfg.Dimensions), func() {}, nil
	case "openai":
		return embopenai.New(embopenai.Config{
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Dimensions: cfg.Dimensions,
		}), func() {}, nil
	case "onnx":
		return newONNXEmbedder(cfg)
	default:
		return nil, nil, fmt.Errorf("unknown embedder provider: %q", cfg.Provider)
	}
}
