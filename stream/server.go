// Package stream broadcasts simulation frames to websocket clients.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	// sendBuffer is how many frames a client may fall behind before it is dropped.
	sendBuffer   = 16
	writeWait    = 5 * time.Second
	shutdownWait = 2 * time.Second
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("stream server closed")

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server is a websocket hub. Every published value is marshaled once and
// fanned out to all connected clients at /ws.
type Server struct {
	addr     string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	done     chan struct{}
	doneOnce sync.Once
}

// NewServer creates a hub that Start will serve on addr.
func NewServer(addr string) *Server {
	return &Server{
		addr:     addr,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  make(map[*client]struct{}),
		done:     make(chan struct{}),
	}
}

// Handler returns the HTTP handler serving /ws and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"clients": s.Clients()})
	})
	return mux
}

// Start listens on the configured address and serves until ctx is done or
// Close is called.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	slog.Info("stream server listening", "addr", ln.Addr().String())

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !s.add(c) {
		conn.Close()
		return
	}
	slog.Debug("stream client connected", "remote", r.RemoteAddr)

	// Clients only listen; reads detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.remove(c)
				return
			}
		}
	}()

	for b := range c.send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			s.remove(c)
			break
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	conn.Close()
}

func (s *Server) add(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(c)
}

func (s *Server) dropLocked(c *client) {
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// Publish marshals v to JSON and queues it for every client. A client whose
// queue is full is disconnected.
func (s *Server) Publish(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			slog.Warn("dropping slow stream client")
			s.dropLocked(c)
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every client and stops Start.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	for c := range s.clients {
		s.dropLocked(c)
	}
	s.mu.Unlock()

	s.doneOnce.Do(func() { close(s.done) })
	return nil
}
