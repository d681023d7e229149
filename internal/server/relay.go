package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/chatrelay/internal/chat"
)

// Relay accepts WebSocket connections for a chat.Hub and owns the lifetime
// of their pumps.
type Relay struct {
	hub      *chat.Hub
	opts     Options
	log      *slog.Logger
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	closing bool
	wg      sync.WaitGroup
}

// NewRelay creates a relay in front of hub.
func NewRelay(hub *chat.Hub, opts Options, log *slog.Logger) *Relay {
	opts = sanitizeOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	origins := newOriginPolicy(opts.AllowedOrigins, log)

	return &Relay{
		hub:  hub,
		opts: opts,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Hub returns the hub connections are handed to.
func (r *Relay) Hub() *chat.Hub {
	return r.hub
}

// ServeWS upgrades the request and registers the connection with the hub
// before its first frame is read.
func (r *Relay) ServeWS(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}
	if r.isClosing() {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		r.log.Debug("WebSocket upgrade failed", "addr", req.RemoteAddr, "error", err)
		return
	}
	client := newClient(conn, r, req.RemoteAddr)

	// Registration and pump accounting happen under the lock so Shutdown
	// either sees this client or refuses it.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closing {
		client.writeClose()
		client.closeConnection()
		return
	}
	if err := r.hub.OnConnect(client); err != nil {
		client.closeConnection()
		return
	}
	r.wg.Add(2)
	go client.writePump()
	go client.readPump()
}

func (r *Relay) isClosing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closing
}

// Shutdown stops accepting connections, closes every registered one and waits
// up to timeout for their pumps to finish.
func (r *Relay) Shutdown(timeout time.Duration) error {
	r.mu.Lock()
	if r.closing {
		r.mu.Unlock()
		return nil
	}
	r.closing = true
	r.mu.Unlock()

	closed := r.hub.CloseAll()
	r.log.Info("Closing client connections", "count", closed)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	defer r.cancel()

	select {
	case <-done:
		r.log.Info("Relay shutdown completed")
		return nil
	case <-time.After(timeout):
		r.log.Warn("Relay shutdown timed out, some connections may still be open", "timeout", timeout)
		return context.DeadlineExceeded
	}
}
