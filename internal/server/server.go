package server

import (
	"context"
	"log"
	"net/http"
	"strings"

	"netadapter-agent/internal/core"
	"netadapter-agent/internal/netadapter"
	"netadapter-agent/internal/scheduler"

	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
)

// CommandHandler defines the interface for handling client commands.
type CommandHandler interface {
	Handle(msg Message, hub *Hub)
}

// Server manages the HTTP and WebSocket services.
type Server struct {
	Hub        *Hub
	handler    CommandHandler
	httpServer *http.Server

	getState      func() core.State
	getAdapters   func() []netadapter.Adapter
	getHookStatus func() string
	getSchedules  func() map[cron.EntryID]scheduler.ScheduleEntry
	getScripts    func() []string

	staticFilesDir string
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewServer creates a new server instance.
func NewServer(getState func() core.State, getAdapters func() []netadapter.Adapter, getHookStatus func() string, getSchedules func() map[cron.EntryID]scheduler.ScheduleEntry, getScripts func() []string, port string, staticFilesDir string, allowedOrigins []string) *Server {
	hub := NewHub()
	go hub.Run()

	s := &Server{
		Hub:           hub,
		handler:       nil,
		getState:      getState,
		getAdapters:   getAdapters,
		getHookStatus: getHookStatus,
		getSchedules:  getSchedules,
		getScripts:    getScripts,

		staticFilesDir: staticFilesDir,
		allowedOrigins: allowedOrigins,
	}

	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				log.Println("Warning: WebSocket CheckOrigin is disabled.")
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			log.Printf("WebSocket connection blocked: Origin '%s' not in allowed list.", origin)
			return false
		},
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.staticFilesDir)))
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.httpServer = &http.Server{Addr: ":" + port, Handler: mux}

	return s
}

// SetHandler sets the command handler.
func (s *Server) SetHandler(h CommandHandler) {
	s.handler = h
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// 1. Agent state snapshot
	if s.getState != nil {
		_ = conn.WriteJSON(NewMessage("agent_state", s.getState()))
	}

	// 2. Current adapter snapshot
	if s.getAdapters != nil {
		_ = conn.WriteJSON(NewMessage("adapter_list", s.getAdapters()))
	}

	// 3. Hook diagnostics
	if s.getHookStatus != nil {
		_ = conn.WriteJSON(NewMessage("hook_status", map[string]string{
			"status": s.getHookStatus(),
		}))
	}

	// 4. Available action scripts
	if s.getScripts != nil {
		_ = conn.WriteJSON(NewMessage("script_list", s.getScripts()))
	}

	// 5. Schedules
	if s.getSchedules != nil {
		_ = conn.WriteJSON(NewMessage("schedule_list", s.getSchedules()))
	}

	s.Hub.register <- conn

	defer func() {
		s.Hub.unregister <- conn
	}()

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if s.handler != nil {
			s.handler.Handle(Message{Raw: msgBytes}, s.Hub)
		}
	}
}
