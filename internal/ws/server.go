package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Server upgrades HTTP requests to WebSocket connections and owns their lifetime
type Server struct {
	handler  Handler
	cfg      Config
	upgrader websocket.Upgrader
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	clients map[*Client]struct{}
	wg      sync.WaitGroup
}

// NewServer creates a new Server
func NewServer(handler Handler, cfg Config, logger *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		handler: handler,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Identity is carried in the connect frame, not cookies
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger.With(slog.String("component", "ws")),
		ctx:     ctx,
		cancel:  cancel,
		clients: make(map[*Client]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the socket in the background
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := newClient(conn, s.handler, s.cfg, s.logger)
	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("connection opened",
		slog.String("conn_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.clients, client)
			s.mu.Unlock()
		}()
		client.run(s.ctx)
	}()
}

// Clients returns the number of open connections
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close closes every connection and waits for their pumps to finish
func (s *Server) Close() {
	s.cancel()

	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	s.wg.Wait()
	s.logger.Info("websocket server closed", slog.Int("connections", len(clients)))
}
