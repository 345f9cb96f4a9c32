package mcp_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/Gabrielmcp78/mem0-sub001/mcp"
	"github.com/Gabrielmcp78/mem0-sub001/memory"
	"github.com/Gabrielmcp78/mem0-sub001/memory/embedder/mock"
	"github.com/Gabrielmcp78/mem0-sub001/memory/store/chromem"
)

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// serve feeds newline-delimited requests through a server and decodes
// whatever comes back, in order.
func serve(t *testing.T, srv *mcp.Server, lines ...string) []rpcResponse {
	t.Helper()

	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer
	if err := srv.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	var resps []rpcResponse
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp rpcResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("Malformed response line %q: %v", scanner.Text(), err)
		}
		resps = append(resps, resp)
	}
	return resps
}

func newBasicServer(t *testing.T) *mcp.Server {
	t.Helper()
	srv := mcp.NewServer("memctl", "test")
	for _, tool := range []mcp.Tool{mcp.PingTool(), mcp.EchoTool()} {
		if err := srv.Register(tool); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	return srv
}

// toolText extracts the text content of a tools/call result.
func toolText(t *testing.T, resp rpcResponse) (string, bool) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Expected tool result, got protocol error: %+v", resp.Error)
	}
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("Malformed tool result: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("Expected a single text content block, got %+v", result.Content)
	}
	return result.Content[0].Text, result.IsError
}

func TestServer_Initialize(t *testing.T) {
	resps := serve(t, newBasicServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
	)
	if len(resps) != 1 {
		t.Fatalf("Expected 1 response, got %d", len(resps))
	}

	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}
	if err := json.Unmarshal(resps[0].Result, &result); err != nil {
		t.Fatalf("Malformed initialize result: %v", err)
	}
	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("Unexpected protocol version %q", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "memctl" || result.ServerInfo.Version != "test" {
		t.Errorf("Unexpected server info %+v", result.ServerInfo)
	}
}

func TestServer_ToolsList(t *testing.T) {
	resps := serve(t, newBasicServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
	)
	if len(resps) != 1 {
		t.Fatalf("Expected 1 response, got %d", len(resps))
	}

	var result struct {
		Tools []struct {
			Name        string                 `json:"name"`
			Description string                 `json:"description"`
			InputSchema map[string]interface{} `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resps[0].Result, &result); err != nil {
		t.Fatalf("Malformed tools/list result: %v", err)
	}
	if len(result.Tools) != 2 {
		t.Fatalf("Expected 2 tools, got %d", len(result.Tools))
	}
	// Registration order is preserved.
	if result.Tools[0].Name != "ping" || result.Tools[1].Name != "echo" {
		t.Errorf("Unexpected tool order: %s, %s", result.Tools[0].Name, result.Tools[1].Name)
	}
	if result.Tools[1].InputSchema["type"] != "object" {
		t.Errorf("Echo schema should be an object, got %v", result.Tools[1].InputSchema["type"])
	}
}

func TestServer_PingAndEcho(t *testing.T) {
	resps := serve(t, newBasicServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"ping","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"message":"hello there"}}}`,
	)
	if len(resps) != 2 {
		t.Fatalf("Expected 2 responses, got %d", len(resps))
	}

	text, isErr := toolText(t, resps[0])
	if isErr || text != "pong" {
		t.Errorf("Expected pong, got %q (isError=%v)", text, isErr)
	}
	text, isErr = toolText(t, resps[1])
	if isErr || text != "hello there" {
		t.Errorf("Expected echo of input, got %q (isError=%v)", text, isErr)
	}
}

func TestServer_ProtocolPing(t *testing.T) {
	resps := serve(t, newBasicServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
	)
	if len(resps) != 1 || resps[0].Error != nil {
		t.Fatalf("Protocol ping should succeed, got %+v", resps)
	}
}

func TestServer_MethodNotFound(t *testing.T) {
	resps := serve(t, newBasicServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
	)
	if len(resps) != 1 || resps[0].Error == nil {
		t.Fatalf("Expected an error response, got %+v", resps)
	}
	if resps[0].Error.Code != -32601 {
		t.Errorf("Expected method-not-found code, got %d", resps[0].Error.Code)
	}
}

func TestServer_ParseError(t *testing.T) {
	resps := serve(t, newBasicServer(t), `this is not json`)
	if len(resps) != 1 || resps[0].Error == nil {
		t.Fatalf("Expected an error response, got %+v", resps)
	}
	if resps[0].Error.Code != -32700 {
		t.Errorf("Expected parse error code, got %d", resps[0].Error.Code)
	}
}

func TestServer_NotificationsIgnored(t *testing.T) {
	resps := serve(t, newBasicServer(t),
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
	)
	if len(resps) != 1 {
		t.Fatalf("Notifications must not be answered, got %d responses", len(resps))
	}
	if string(resps[0].ID) != "1" {
		t.Errorf("Response should belong to the ping request, got ID %s", resps[0].ID)
	}
}

func TestServer_UnknownTool(t *testing.T) {
	resps := serve(t, newBasicServer(t),
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"vanish"}}`,
	)
	if len(resps) != 1 || resps[0].Error == nil {
		t.Fatalf("Expected an error response, got %+v", resps)
	}
	if resps[0].Error.Code != -32602 {
		t.Errorf("Expected invalid-params code, got %d", resps[0].Error.Code)
	}
}

func TestServer_RegisterValidation(t *testing.T) {
	srv := mcp.NewServer("memctl", "test")

	if err := srv.Register(mcp.Tool{Name: "nohandler"}); err == nil {
		t.Error("Registering a handlerless tool should fail")
	}
	if err := srv.Register(mcp.PingTool()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := srv.Register(mcp.PingTool()); err == nil {
		t.Error("Registering a duplicate tool should fail")
	}
}

func TestServer_ToolFailureIsResultNotError(t *testing.T) {
	srv := mcp.NewServer("memctl", "test")
	err := srv.Register(mcp.Tool{
		Name:        "fail",
		Description: "Always fails.",
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			return "", fmt.Errorf("backend unavailable")
		},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	resps := serve(t, srv,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"fail","arguments":{}}}`,
	)
	if len(resps) != 1 {
		t.Fatalf("Expected 1 response, got %d", len(resps))
	}
	text, isErr := toolText(t, resps[0])
	if !isErr {
		t.Error("Tool failure must set isError in the result")
	}
	if text != "backend unavailable" {
		t.Errorf("Expected the failure message, got %q", text)
	}
}

func TestServer_MemoryToolsEndToEnd(t *testing.T) {
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mgr := memory.New(store, mock.New(64), &memory.Config{MinScore: 0, SearchLimit: 10})

	srv := mcp.NewServer("memctl", "test")
	for _, tool := range mcp.MemoryTools(mgr) {
		if err := srv.Register(tool); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	resps := serve(t, srv,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"add_memory","arguments":{"user_id":"user1","messages":[{"role":"user","content":"I like espresso"}]}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"search_memory","arguments":{"user_id":"user1","query":"I like espresso"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_all_memories","arguments":{"user_id":"user1"}}}`,
	)
	if len(resps) != 3 {
		t.Fatalf("Expected 3 responses, got %d", len(resps))
	}

	// add_memory returns the applied actions, including the new ID.
	text, isErr := toolText(t, resps[0])
	if isErr {
		t.Fatalf("add_memory failed: %s", text)
	}
	var added struct {
		Results []memory.Action `json:"results"`
	}
	if err := json.Unmarshal([]byte(text), &added); err != nil {
		t.Fatalf("Malformed add_memory payload: %v", err)
	}
	if len(added.Results) != 1 || added.Results[0].Event != memory.EventAdd {
		t.Fatalf("Expected one ADD action, got %+v", added.Results)
	}
	memoryID := added.Results[0].ID

	text, isErr = toolText(t, resps[1])
	if isErr {
		t.Fatalf("search_memory failed: %s", text)
	}
	var searched struct {
		Results []*memory.Record `json:"results"`
	}
	if err := json.Unmarshal([]byte(text), &searched); err != nil {
		t.Fatalf("Malformed search_memory payload: %v", err)
	}
	if len(searched.Results) == 0 || searched.Results[0].Content != "I like espresso" {
		t.Fatalf("Expected the stored memory back, got %+v", searched.Results)
	}

	text, isErr = toolText(t, resps[2])
	if isErr {
		t.Fatalf("get_all_memories failed: %s", text)
	}

	// Delete it and confirm nothing remains.
	resps = serve(t, srv,
		fmt.Sprintf(`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"delete_memory","arguments":{"user_id":"user1","memory_id":%q}}}`, memoryID),
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"get_all_memories","arguments":{"user_id":"user1"}}}`,
	)
	if len(resps) != 2 {
		t.Fatalf("Expected 2 responses, got %d", len(resps))
	}
	if text, isErr = toolText(t, resps[0]); isErr {
		t.Fatalf("delete_memory failed: %s", text)
	}
	text, _ = toolText(t, resps[1])
	var remaining struct {
		Results []*memory.Record `json:"results"`
	}
	if err := json.Unmarshal([]byte(text), &remaining); err != nil {
		t.Fatalf("Malformed get_all_memories payload: %v", err)
	}
	if len(remaining.Results) != 0 {
		t.Errorf("Expected no memories after delete, got %+v", remaining.Results)
	}
}
