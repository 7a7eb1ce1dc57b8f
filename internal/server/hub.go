// Package server hosts game sessions over websockets, one engine per
// connection.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/hersh/blockfall/internal/game"
	"github.com/hersh/blockfall/internal/protocol"
	"github.com/hersh/blockfall/internal/session"
)

// Hub tracks the live sessions.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	nextID   int

	cfg      game.Config
	upgrader websocket.Upgrader
}

// NewHub creates a hub whose sessions use cfg. A zero cfg.Seed gives every
// session a time-based seed; otherwise session n plays seed cfg.Seed+n.
func NewHub(cfg game.Config) *Hub {
	return &Hub{
		sessions: make(map[string]*session.Session),
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes: /ws, /health and /sessions.
func (h *Hub) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/ws", h.handleConnection)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	router.HandleFunc("/sessions", h.handleListSessions).Methods("GET")
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return router
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Sessions lists the live sessions ordered by id.
func (h *Hub) Sessions() []protocol.SessionInfo {
	h.mu.RLock()
	infos := make([]protocol.SessionInfo, 0, len(h.sessions))
	for _, s := range h.sessions {
		infos = append(infos, s.Info())
	}
	h.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].SessionID < infos[j].SessionID
	})
	return infos
}

func (h *Hub) newSessionConfig() (string, game.Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++

	cfg := h.cfg
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	} else {
		cfg.Seed += int64(h.nextID)
	}
	return fmt.Sprintf("session_%d_%d", time.Now().UnixMilli(), h.nextID), cfg
}

func (h *Hub) add(s *session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID()] = s
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

func (h *Hub) handleConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}

	id, cfg := h.newSessionConfig()
	c := newConn(id, ws)
	s := session.New(id, cfg, c)
	h.add(s)
	log.Printf("Session %s connected from %s", id, r.RemoteAddr)

	c.Send(protocol.Envelope{
		Type:    protocol.MsgAssignID,
		Payload: protocol.AssignIDPayload{SessionID: id},
	})

	go c.writePump()

	ctx, cancel := context.WithCancel(r.Context())
	go s.Run(ctx)

	// Read pump (blocking)
	c.readPump(ctx, s)

	// Cleanup on disconnect. The session must stop publishing before the
	// send channel closes.
	cancel()
	<-s.Done()
	c.close()
	h.remove(id)
	log.Printf("Session %s disconnected", id)
}

func (h *Hub) handleListSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(protocol.ListSessionsResponse{Sessions: h.Sessions()})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(protocol.ErrorResponse{Error: msg})
}
