package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Gabrielmcp78/mem0-sub001/memory"
)

// PingTool acknowledges liveness checks with a fixed reply.
func PingTool() Tool {
	return Tool{
		Name:        "ping",
		Description: "Responds with pong. Connectivity check.",
		InputSchema: ObjectSchema(map[string]interface{}{}),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			return "pong", nil
		},
	}
}

// EchoTool returns its input text unchanged.
func EchoTool() Tool {
	return Tool{
		Name:        "echo",
		Description: "Echoes the provided message back to the caller.",
		InputSchema: ObjectSchema(map[string]interface{}{
			"message": StringProperty("Text to echo back"),
		}, "message"),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			var input struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(args, &input); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			return input.Message, nil
		},
	}
}

// MemoryTools exposes the memory manager's operations as tools.
func MemoryTools(mgr *memory.Manager) []Tool {
	return []Tool{
		{
			Name:        "add_memory",
			Description: "Store what the given messages reveal about the user in long-term memory.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"user_id":  StringProperty("User whose memory to write"),
				"messages": MessageArrayProperty("Conversation messages to remember"),
			}, "user_id", "messages"),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var input struct {
					UserID   string           `json:"user_id"`
					Messages []memory.Message `json:"messages"`
				}
				if err := json.Unmarshal(args, &input); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				actions, err := mgr.Add(ctx, input.UserID, input.Messages)
				if err != nil {
					return "", err
				}
				return marshalJSON(map[string]interface{}{"results": actionsOrEmpty(actions)})
			},
		},
		{
			Name:        "search_memory",
			Description: "Search the user's long-term memory by semantic similarity.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"user_id": StringProperty("User whose memory to search"),
				"query":   StringProperty("Natural language search query"),
				"limit":   IntegerProperty("Maximum number of results (default: 10)"),
			}, "user_id", "query"),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var input struct {
					UserID string `json:"user_id"`
					Query  string `json:"query"`
					Limit  int    `json:"limit"`
				}
				if err := json.Unmarshal(args, &input); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				recs, err := mgr.Search(ctx, input.UserID, input.Query, input.Limit)
				if err != nil {
					return "", err
				}
				return marshalJSON(map[string]interface{}{"results": recordsOrEmpty(recs)})
			},
		},
		{
			Name:        "get_all_memories",
			Description: "List every memory stored for the user.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"user_id": StringProperty("User whose memories to list"),
			}, "user_id"),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var input struct {
					UserID string `json:"user_id"`
				}
				if err := json.Unmarshal(args, &input); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				recs, err := mgr.GetAll(ctx, input.UserID)
				if err != nil {
					return "", err
				}
				return marshalJSON(map[string]interface{}{"results": recordsOrEmpty(recs)})
			},
		},
		{
			Name:        "delete_memory",
			Description: "Delete one memory by ID.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"user_id":   StringProperty("User owning the memory"),
				"memory_id": StringProperty("ID of the memory to delete"),
			}, "user_id", "memory_id"),
			Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
				var input struct {
					UserID   string `json:"user_id"`
					MemoryID string `json:"memory_id"`
				}
				if err := json.Unmarshal(args, &input); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				if strings.TrimSpace(input.MemoryID) == "" {
					return "", fmt.Errorf("memory_id is required")
				}
				if err := mgr.Delete(ctx, input.UserID, input.MemoryID); err != nil {
					return "", err
				}
				return marshalJSON(map[string]interface{}{"deleted": input.MemoryID})
			},
		},
	}
}

func marshalJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

func actionsOrEmpty(actions []memory.Action) []memory.Action {
	if actions == nil {
		return []memory.Action{}
	}
	return actions
}

func recordsOrEmpty(recs []*memory.Record) []*memory.Record {
	if recs == nil {
		return []*memory.Record{}
	}
	return recs
}
