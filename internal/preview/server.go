// Package preview serves the output root over HTTP during watch mode and
// pushes live-reload messages to connected browsers after each successful
// regeneration.
package preview

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/keyforge/keyforge/internal/logging"
)

// Server hosts the generated artifacts plus a /ws live-reload endpoint.
type Server struct {
	addr string
	root string
	hub  *Hub
	log  logging.Logger
	http *http.Server
}

// NewServer creates a preview server for the output root.
func NewServer(port int, root string, log logging.Logger) *Server {
	return &Server{
		addr: fmt.Sprintf("127.0.0.1:%d", port),
		root: root,
		hub:  NewHub(log),
		log:  log.WithComponent("preview"),
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the server's route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.root)))
	mux.HandleFunc("/ws", s.handleWebSocket)

	return mux
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.hub.Shutdown()
		s.http.Shutdown(shutdownCtx)
	}()

	s.log.Info(ctx, "preview server listening", "addr", "http://"+s.addr)

	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// NotifyReload broadcasts a reload message to every connected client.
func (s *Server) NotifyReload(ctx context.Context) {
	s.hub.Broadcast(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), err, "websocket accept failed")

		return
	}

	s.hub.Register(conn)
	defer s.hub.Unregister(conn)

	// Hold the connection open; clients only listen.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			conn.Close(websocket.StatusNormalClosure, "")

			return
		}
	}
}
