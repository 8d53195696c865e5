// Package control exposes a local websocket channel that mirrors
// pipeline events to attached clients and accepts a small command set
// back: stop, shutdown, confirm, deny.
package control

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexassist/internal/bus"
)

// Pipeline is the slice of the orchestrator the control channel drives.
type Pipeline interface {
	Stop()
	Shutdown()
	ResolveConfirmation(ctx context.Context, confirm bool) string
}

// Command is an inbound client request.
type Command struct {
	Command string `json:"command"` // stop, shutdown, confirm, deny
}

// Message is an outbound event frame.
type Message struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Config holds control server settings.
type Config struct {
	Addr string `json:"addr"`
}

// Server is the websocket control endpoint.
type Server struct {
	config   Config
	logger   zerolog.Logger
	pipeline Pipeline
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	httpServer *http.Server
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// NewServer creates the control server and mirrors every bus event to
// connected clients.
func NewServer(logger zerolog.Logger, config Config, events *bus.EventBus, pipeline Pipeline) *Server {
	s := &Server{
		config:   config,
		logger:   logger.With().Str("component", "control").Logger(),
		pipeline: pipeline,
		upgrader: websocket.Upgrader{
			// local-only channel, same-origin rules don't apply
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}

	events.SubscribeAll(func(event bus.Event) {
		s.Broadcast(Message{
			Type:      string(event.Type),
			Data:      event.Data,
			Timestamp: time.Now(),
		})
	})

	return s
}

// Handler returns the websocket upgrade handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{Addr: s.config.Addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", s.config.Addr).Msg("Control channel listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Broadcast queues a message to every connected client. Slow clients
// drop messages rather than stalling the pipeline.
func (s *Server) Broadcast(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// ClientCount returns the number of attached clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan Message, 32)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("Control client attached")

	go s.writePump(c)
	s.readPump(r.Context(), c)
}

func (s *Server) writePump(c *client) {
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (s *Server) readPump(ctx context.Context, c *client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		close(c.send)
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.logger.Warn().Err(err).Msg("Malformed control command")
			continue
		}
		s.dispatch(ctx, c, cmd)
	}
}

func (s *Server) dispatch(ctx context.Context, c *client, cmd Command) {
	s.logger.Info().Str("command", cmd.Command).Msg("Control command received")

	switch cmd.Command {
	case "stop":
		s.pipeline.Stop()
	case "shutdown":
		s.pipeline.Shutdown()
	case "confirm", "deny":
		reply := s.pipeline.ResolveConfirmation(ctx, cmd.Command == "confirm")
		select {
		case c.send <- Message{
			Type:      string(bus.EventTypeResponse),
			Data:      map[string]any{"text": reply},
			Timestamp: time.Now(),
		}:
		default:
		}
	default:
		select {
		case c.send <- Message{
			Type:      "error",
			Data:      map[string]any{"message": "unknown command " + cmd.Command},
			Timestamp: time.Now(),
		}:
		default:
		}
	}
}
