// Package server exposes the memory manager over a websocket endpoint
// plus a plain HTTP health check. One JSON request per message, one JSON
// response back; connections are independent and stateless.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Gabrielmcp78/mem0-sub001/memory"
)

// Request is a single operation sent by a client.
type Request struct {
	// ID is echoed back so clients can correlate responses.
	ID string `json:"id,omitempty"`

	// Op is one of: add, search, get, get_all, delete, delete_all.
	Op string `json:"op"`

	UserID   string           `json:"user_id"`
	Messages []memory.Message `json:"messages,omitempty"`
	Query    string           `json:"query,omitempty"`
	Limit    int              `json:"limit,omitempty"`
	MemoryID string           `json:"memory_id,omitempty"`
}

// Response answers one Request.
type Response struct {
	ID      string      `json:"id,omitempty"`
	Op      string      `json:"op"`
	OK      bool        `json:"ok"`
	Error   string      `json:"error,omitempty"`
	Results interface{} `json:"results,omitempty"`
}

// Server serves memory operations over /ws and liveness over /health.
type Server struct {
	mgr      *memory.Manager
	upgrader websocket.Upgrader
	http     *http.Server
}

// New creates a server for the given manager.
func New(mgr *memory.Manager) *Server {
	s := &Server{
		mgr: mgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	s.http = &http.Server{Handler: mux}
	return s
}

// Run listens on addr until the server is shut down.
func (s *Server) Run(addr string) error {
	s.http.Addr = addr
	log.Printf("[SERVER] Listening on %s (websocket: /ws, health: /health)", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleWS upgrades the connection and serves requests until the client
// disconnects. Requests on one connection are processed in order.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVER] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[SERVER] Client connected: %s", conn.RemoteAddr())
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[SERVER] Read error: %v", err)
			}
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		resp := s.process(ctx, &req)
		cancel()

		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("[SERVER] Write error: %v", err)
			return
		}
	}
}

// process executes one operation against the manager.
func (s *Server) process(ctx context.Context, req *Request) *Response {
	resp := &Response{ID: req.ID, Op: req.Op}

	fail := func(err error) *Response {
		resp.Error = err.Error()
		return resp
	}

	switch req.Op {
	case "add":
		actions, err := s.mgr.Add(ctx, req.UserID, req.Messages)
		if err != nil {
			return fail(err)
		}
		resp.OK = true
		resp.Results = actions

	case "search":
		recs, err := s.mgr.Search(ctx, req.UserID, req.Query, req.Limit)
		if err != nil {
			return fail(err)
		}
		resp.OK = true
		resp.Results = recs

	case "get":
		rec, err := s.mgr.Get(ctx, req.UserID, req.MemoryID)
		if err != nil {
			return fail(err)
		}
		resp.OK = true
		resp.Results = rec

	case "get_all":
		recs, err := s.mgr.GetAll(ctx, req.UserID)
		if err != nil {
			return fail(err)
		}
		resp.OK = true
		resp.Results = recs

	case "delete":
		if err := s.mgr.Delete(ctx, req.UserID, req.MemoryID); err != nil {
			return fail(err)
		}
		resp.OK = true

	case "delete_all":
		if err := s.mgr.DeleteAll(ctx, req.UserID); err != nil {
			return fail(err)
		}
		resp.OK = true

	default:
		resp.Error = fmt.Sprintf("unknown op: %q", req.Op)
	}
	return resp
}
