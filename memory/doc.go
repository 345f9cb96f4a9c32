// Package memory provides a long-term memory layer for LLM applications.
//
// Memories are units of stored text plus metadata, namespaced by UserID
// for multi-user support. Adding messages runs them through an optional
// LLM fact-extraction step, embeds the resulting facts, and reconciles
// them against existing memories (add, update, delete). Retrieval is
// vector similarity search over the user's namespace.
//
// Architecture:
//   - Store: vector storage backend (embedded chromem, remote qdrant)
//   - Embedder: text-to-vector conversion (OpenAI-compatible API, local
//     ONNX model, or deterministic mock for tests)
//   - Extractor: optional LLM that distills messages into facts and
//     decides how new facts reconcile with stored ones
//   - Manager: orchestrates add, search, get_all, delete operations
//
// The Manager degrades gracefully: without an Extractor it stores raw
// message content with hash-based deduplication, and extraction failures
// fall back to the same path instead of failing the add.
package memory
