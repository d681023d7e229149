package server

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one WebSocket connection. It implements chat.Conn.
type Client struct {
	id      string
	addr    string
	conn    *websocket.Conn
	relay   *Relay
	opts    Options
	log     *slog.Logger
	limiter *rateLimiter

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn, relay *Relay, addr string) *Client {
	if conn != nil {
		conn.SetReadLimit(relay.opts.MaxMessageSize)
	}
	id := uuid.NewString()

	return &Client{
		id:      id,
		addr:    addr,
		conn:    conn,
		relay:   relay,
		opts:    relay.opts,
		log:     relay.log.With("conn", id, "addr", addr),
		limiter: newRateLimiter(relay.opts.RateLimit.Burst, relay.opts.RateLimit.RefillInterval),
		send:    make(chan []byte, relay.opts.SendQueueSize),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send enqueues frame without blocking. When the queue is full the client is
// closed and ErrSendQueueFull returned.
func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		c.log.Warn("Send queue full, closing slow connection", "capacity", cap(c.send))
		c.closeLocked()
		return ErrSendQueueFull
	}
}

// Close stops the client. Frames already queued are still written, followed
// by a close frame. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()
	return nil
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait)); err != nil {
		c.log.Debug("Error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})
}

// logReadError records why the read loop ended.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Frame exceeded maximum size", "limit", c.opts.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Info("Client disconnected", "reason", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Info("Client connection closed", "reason", err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn("Unexpected WebSocket close", "error", err)
	default:
		c.log.Warn("WebSocket read error", "error", err)
	}
}

// checkRateLimit reports whether the next frame may be processed.
func (c *Client) checkRateLimit() bool {
	if c.limiter.allow() {
		return true
	}
	c.log.Warn("Rate limit exceeded, discarding frame",
		"burst", c.opts.RateLimit.Burst,
		"interval", c.opts.RateLimit.RefillInterval)
	return false
}

// readPump hands inbound frames to the hub in arrival order. It is the only
// caller of OnDisconnect for this client.
func (c *Client) readPump() {
	defer c.relay.wg.Done()
	defer func() {
		c.relay.hub.OnDisconnect(c)
		_ = c.Close()
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		// Decode failures are logged by the hub and never end the session.
		_ = c.relay.hub.HandleFrame(c.relay.ctx, c, raw)
	}
}

// writePump writes queued frames until the queue is closed or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.pingPeriod())
	defer func() {
		ticker.Stop()
		c.closeConnection()
		c.relay.wg.Done()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				c.writeClose()
				return
			}
			if !c.writeFrame(frame) {
				return
			}
		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Debug("Error closing connection", "error", err)
	}
}

func (c *Client) writeFrame(frame []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
		c.log.Debug("Error setting write deadline", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("Error writing frame", "error", err)
		}
		return false
	}
	return true
}

func (c *Client) writeClose() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil && !isExpectedCloseError(err) {
		c.log.Debug("Error writing close frame", "error", err)
	}
}

// writePing sends a ping message to keep the connection alive
func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
		c.log.Debug("Error setting write deadline for ping", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Debug("Error writing ping", "error", err)
		return false
	}
	return true
}
