package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lcalzada-xor/dot11sentry/internal/core/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// DebugServer exposes GET /status, GET /metrics, and GET /ws — a
// read-only surface for operators. It implements ports.StatusPublisher so
// the StatusPusher can hand it each periodic snapshot.
type DebugServer struct {
	Addr string

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	latest  domain.StatusSnapshot

	srv *http.Server
}

// NewDebugServer builds a DebugServer listening on addr.
func NewDebugServer(addr string) *DebugServer {
	return &DebugServer{
		Addr:    addr,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Publish satisfies ports.StatusPublisher: it records the latest snapshot
// and fans it out to every connected websocket client.
func (s *DebugServer) Publish(ctx context.Context, snapshot domain.StatusSnapshot) error {
	s.mu.Lock()
	s.latest = snapshot
	s.mu.Unlock()
	s.broadcast(snapshot)
	return nil
}

// Run starts the HTTP server and blocks until ctx is canceled, then shuts
// down gracefully.
func (s *DebugServer) Run(ctx context.Context) error {
	router := mux.NewRouter()
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.srv = &http.Server{Addr: s.Addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry: debug server shutdown error: %v", err)
		}
	}()

	log.Printf("telemetry: debug server listening on %s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *DebugServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snapshot := s.latest
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

func (s *DebugServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("telemetry: websocket upgrade error: %v", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer conn.Close()
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (s *DebugServer) broadcast(snapshot domain.StatusSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("telemetry: snapshot marshal error: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
}
