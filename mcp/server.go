// Package mcp implements a minimal tool-calling server speaking
// newline-delimited JSON-RPC 2.0 over a byte stream, normally stdio.
// Clients initialize the session, list the registered tools and invoke
// them by name; everything else is answered with a standard JSON-RPC
// error.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
)

// protocolVersion is the protocol revision reported to clients.
const protocolVersion = "2024-11-05"

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Handler executes a tool call. The returned string becomes the text
// content of the result; a non-nil error is reported to the client as a
// tool-level failure, not a protocol error.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Tool is a named operation exposed over the protocol.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
	Handler     Handler
}

// Server dispatches JSON-RPC requests to registered tools.
type Server struct {
	name    string
	version string

	mu    sync.RWMutex
	tools map[string]Tool
	order []string

	writeMu sync.Mutex
	out     *json.Encoder
}

// NewServer creates a server identified to clients by name and version.
func NewServer(name, version string) *Server {
	return &Server{
		name:    name,
		version: version,
		tools:   make(map[string]Tool),
	}
}

// Register adds a tool. Registering a duplicate or handlerless tool is a
// programming error and fails loudly.
func (s *Server) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %q has no handler", tool.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tools[tool.Name]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name)
	}
	s.tools[tool.Name] = tool
	s.order = append(s.order, tool.Name)
	return nil
}

// request is an incoming JSON-RPC message. A missing ID marks a
// notification, which gets no response.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Serve reads newline-delimited requests from r and writes responses to
// w until EOF or context cancellation.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.out = json.NewEncoder(w)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	log.Printf("[MCP] %s %s serving %d tool(s)", s.name, s.version, len(s.order))

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			s.reply(response{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error"}})
			continue
		}
		s.dispatch(ctx, &req)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	log.Printf("[MCP] Input closed, shutting down")
	return nil
}

// dispatch routes one request. Notifications are handled without a reply.
func (s *Server) dispatch(ctx context.Context, req *request) {
	if len(req.ID) == 0 || string(req.ID) == "null" {
		// Notifications (e.g. notifications/initialized) need no answer.
		return
	}

	switch req.Method {
	case "initialize":
		s.result(req, map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    s.name,
				"version": s.version,
			},
		})

	case "ping":
		s.result(req, map[string]interface{}{})

	case "tools/list":
		s.result(req, map[string]interface{}{"tools": s.listTools()})

	case "tools/call":
		s.callTool(ctx, req)

	default:
		s.rpcFail(req, codeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

// listTools returns tool descriptors in registration order.
func (s *Server) listTools() []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]map[string]interface{}, 0, len(s.order))
	for _, name := range s.order {
		tool := s.tools[name]
		schema := tool.InputSchema
		if schema == nil {
			schema = ObjectSchema(map[string]interface{}{})
		}
		out = append(out, map[string]interface{}{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schema,
		})
	}
	return out
}

// callTool executes a tools/call request. Tool failures are reported in
// the result payload with isError set, per the protocol.
func (s *Server) callTool(ctx context.Context, req *request) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		s.rpcFail(req, codeInvalidParams, "tools/call requires a tool name")
		return
	}

	s.mu.RLock()
	tool, ok := s.tools[params.Name]
	s.mu.RUnlock()
	if !ok {
		s.rpcFail(req, codeInvalidParams, fmt.Sprintf("unknown tool: %s", params.Name))
		return
	}

	log.Printf("[MCP] Calling tool %s", params.Name)
	text, err := tool.Handler(ctx, params.Arguments)
	if err != nil {
		s.result(req, toolResult(err.Error(), true))
		return
	}
	s.result(req, toolResult(text, false))
}

func toolResult(text string, isError bool) map[string]interface{} {
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
		"isError": isError,
	}
}

func (s *Server) result(req *request, result interface{}) {
	s.reply(response{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func (s *Server) rpcFail(req *request, code int, msg string) {
	s.reply(response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: code, Message: msg}})
}

func (s *Server) reply(resp response) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.out.Encode(resp); err != nil {
		log.Printf("[MCP] Failed to write response: %v", err)
	}
}
