// Package config holds the configuration surface for the memory layer:
// which vector store to talk to, which embedder to use, and which LLM
// backs fact extraction. Values come from flags, a YAML config file, or
// environment variables; Default is usable as-is for local development
// against an embedded store.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// VectorStore selects and configures the vector storage backend.
type VectorStore struct {
	// Provider is "chromem" (embedded) or "qdrant" (remote).
	Provider string

	// Host and Port locate a remote vector store service.
	Host string
	Port int

	// Collection is the collection name used for memory points.
	Collection string

	// Path enables on-disk persistence for the embedded store.
	// Empty means in-memory only.
	Path string

	// Dimensions is the embedding vector size the store is created with.
	Dimensions int
}

// Embedder selects and configures text-to-vector conversion.
type Embedder struct {
	// Provider is "openai", "onnx" or "mock".
	Provider string

	// Model is the embedding model name (openai provider).
	Model string

	// BaseURL overrides the API endpoint. Points at any
	// OpenAI-compatible server, including local ones.
	BaseURL string

	// APIKey authenticates against the embedding endpoint.
	APIKey string

	// Dimensions is the embedding vector size.
	Dimensions int

	// ModelPath, TokenizerPath and LibraryPath configure the onnx provider.
	ModelPath     string
	TokenizerPath string
	LibraryPath   string
}

// LLM configures the fact-extraction model.
type LLM struct {
	// Provider is "anthropic", "openai" or "" (extraction disabled).
	Provider string

	// Model is the model identifier.
	Model string

	// BaseURL overrides the API endpoint (local inference servers).
	BaseURL string

	// APIKey authenticates against the inference endpoint.
	APIKey string

	// MaxTokens caps response tokens per extraction call.
	MaxTokens int
}

// Config is the root configuration for the memory layer.
type Config struct {
	VectorStore VectorStore
	Embedder    Embedder
	LLM         LLM

	// MinScore is the minimum similarity for search results [0.0-1.0].
	MinScore float64

	// SearchLimit is the default result count for Search.
	SearchLimit int
}

// Default returns a configuration suitable for local development:
// embedded chromem store, mock embedder, extraction disabled.
func Default() *Config {
	return &Config{
		VectorStore: VectorStore{
			Provider:   "chromem",
			Collection: "memories",
			Dimensions: 384,
		},
		Embedder: Embedder{
			Provider:   "mock",
			Dimensions: 384,
		},
		MinScore:    0.3,
		SearchLimit: 10,
	}
}

// FromEnv builds a configuration from environment variables, starting
// from Default. Unset variables leave the defaults in place.
func FromEnv() *Config {
	cfg := Default()

	setString(&cfg.VectorStore.Provider, "MEM_VECTOR_STORE")
	setString(&cfg.VectorStore.Host, "MEM_VECTOR_HOST")
	setInt(&cfg.VectorStore.Port, "MEM_VECTOR_PORT")
	setString(&cfg.VectorStore.Collection, "MEM_VECTOR_COLLECTION")
	setString(&cfg.VectorStore.Path, "MEM_VECTOR_PATH")

	setString(&cfg.Embedder.Provider, "MEM_EMBEDDER")
	setString(&cfg.Embedder.Model, "MEM_EMBEDDER_MODEL")
	setString(&cfg.Embedder.BaseURL, "MEM_EMBEDDER_BASE_URL")
	setString(&cfg.Embedder.APIKey, "OPENAI_API_KEY")
	setInt(&cfg.Embedder.Dimensions, "MEM_EMBEDDER_DIMENSIONS")
	setString(&cfg.Embedder.ModelPath, "MEM_ONNX_MODEL")
	setString(&cfg.Embedder.TokenizerPath, "MEM_ONNX_TOKENIZER")
	setString(&cfg.Embedder.LibraryPath, "MEM_ONNX_LIBRARY")

	setString(&cfg.LLM.Provider, "MEM_LLM")
	setString(&cfg.LLM.Model, "MEM_LLM_MODEL")
	setString(&cfg.LLM.BaseURL, "MEM_LLM_BASE_URL")
	if cfg.LLM.Provider == "anthropic" {
		setString(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
	} else {
		setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	}

	return cfg
}

// Validate checks that the selected providers are fully specified.
func (c *Config) Validate() error {
	switch c.VectorStore.Provider {
	case "chromem":
	case "qdrant":
		if c.VectorStore.Host == "" {
			return fmt.Errorf("vector store %q requires a host", c.VectorStore.Provider)
		}
		if c.VectorStore.Port == 0 {
			return fmt.Errorf("vector store %q requires a port", c.VectorStore.Provider)
		}
		if c.VectorStore.Collection == "" {
			return fmt.Errorf("vector store %q requires a collection name", c.VectorStore.Provider)
		}
	default:
		return fmt.Errorf("unknown vector store provider: %q", c.VectorStore.Provider)
	}

	switch c.Embedder.Provider {
	case "mock":
	case "openai":
		if c.Embedder.APIKey == "" && c.Embedder.BaseURL == "" {
			return fmt.Errorf("openai embedder requires an API key or a base URL")
		}
	case "onnx":
		if c.Embedder.ModelPath == "" {
			return fmt.Errorf("onnx embedder requires a model path")
		}
	default:
		return fmt.Errorf("unknown embedder provider: %q", c.Embedder.Provider)
	}

	switch c.LLM.Provider {
	case "", "openai":
	case "anthropic":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("anthropic extractor requires an API key")
		}
	default:
		return fmt.Errorf("unknown llm provider: %q", c.LLM.Provider)
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
