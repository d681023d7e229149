//go:generate go run go.uber.org/mock/mockgen -source=hub.go -destination=mocks/mock_hub.go -package=mocks
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/Tyrowin/chatrelay/internal/protocol"
	"github.com/Tyrowin/chatrelay/internal/store"
)

// Archive persists chat messages that carry a storage identity.
type Archive interface {
	AppendMessage(ctx context.Context, userID int64, displayName, text string) (store.Message, error)
}

// Censor rewrites message bodies before they are archived and relayed.
type Censor interface {
	Censor(text string) string
}

// Option configures a Hub.
type Option func(*Hub)

// WithArchive hands every message frame carrying a positive userId to archive
// before it is broadcast.
func WithArchive(archive Archive) Option {
	return func(h *Hub) { h.archive = archive }
}

// WithCensor filters message bodies through censor.
func WithCensor(censor Censor) Option {
	return func(h *Hub) { h.censor = censor }
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

// Hub translates connection lifecycle and inbound events into outbound
// fan-out over a Registry. All methods are safe for concurrent use; events
// from one connection must be submitted sequentially by that connection's
// reader to keep their effects in order.
type Hub struct {
	registry *Registry
	log      *slog.Logger
	archive  Archive
	censor   Censor
	now      func() time.Time
}

// NewHub creates a hub over registry.
func NewHub(registry *Registry, log *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		registry: registry,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Registry returns the registry the hub mutates.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// OnConnect registers conn and greets it with the current participant count.
// Nobody else is told until the connection joins.
func (h *Hub) OnConnect(conn Conn) error {
	if err := h.registry.Register(conn); err != nil {
		h.log.Error("Refusing connection", "conn", conn.ID(), "error", err)
		return err
	}

	online := h.registry.Count()
	h.log.Info("Connection registered", "conn", conn.ID(), "online", online)
	h.deliver([]Record{{Conn: conn}}, protocol.Connected(online, h.now()))
	return nil
}

// OnDisconnect removes conn. If it had joined, the remaining connections are
// told it left.
func (h *Hub) OnDisconnect(conn Conn) {
	record, ok := h.registry.Remove(conn)
	if !ok {
		return
	}

	remaining := h.registry.Snapshot()
	h.log.Info("Connection removed", "conn", conn.ID(), "name", record.DisplayName, "online", len(remaining))
	if !record.Joined {
		return
	}
	h.deliver(remaining, protocol.UserLeft(record.DisplayName, len(remaining), h.now()))
}

// HandleFrame decodes raw and dispatches it. Undecodable frames are logged and
// dropped; the returned error is informational only.
func (h *Hub) HandleFrame(ctx context.Context, conn Conn, raw []byte) error {
	ev, err := protocol.Decode(raw)
	switch {
	case errors.Is(err, protocol.ErrUnknownType):
		h.log.Debug("Ignoring frame", "conn", conn.ID(), "error", err)
		return err
	case err != nil:
		h.log.Warn("Discarding malformed frame", "conn", conn.ID(), "error", err)
		return err
	}
	return h.OnInbound(ctx, conn, ev)
}

// OnInbound applies one decoded event from conn. Events for a connection that
// is no longer registered are dropped with ErrUnknownConnection.
func (h *Hub) OnInbound(ctx context.Context, conn Conn, ev protocol.InboundEvent) error {
	if _, ok := h.registry.Lookup(conn); !ok {
		h.log.Warn("Dropping event for removed connection", "conn", conn.ID(), "name", ev.DisplayName())
		return ErrUnknownConnection
	}

	switch e := ev.(type) {
	case protocol.Join:
		return h.join(conn, e)
	case protocol.ChatMessage:
		h.message(ctx, conn, e)
	case protocol.Typing:
		h.typing(conn, e)
	default:
		return fmt.Errorf("%w: %T", protocol.ErrUnknownType, ev)
	}
	return nil
}

// CloseAll closes every registered connection and returns how many there were.
// Each closed connection still reports its own OnDisconnect.
func (h *Hub) CloseAll() int {
	records := h.registry.Snapshot()
	for _, record := range records {
		if err := record.Conn.Close(); err != nil {
			h.log.Debug("Error closing connection", "conn", record.Conn.ID(), "error", err)
		}
	}
	return len(records)
}

func (h *Hub) join(conn Conn, e protocol.Join) error {
	if err := h.registry.SetDisplayName(conn, e.Name); err != nil {
		h.log.Warn("Join arrived after disconnect", "conn", conn.ID(), "name", e.Name)
		return err
	}
	h.log.Info("User joined", "conn", conn.ID(), "name", e.Name)

	everyone := h.registry.Snapshot()
	h.deliver(everyone, protocol.UserJoined(e.Name, len(everyone), h.now()))
	return nil
}

func (h *Hub) message(ctx context.Context, conn Conn, e protocol.ChatMessage) {
	text := e.Text
	if h.censor != nil {
		text = h.censor.Censor(text)
	}

	if h.archive != nil && e.UserID > 0 {
		if _, err := h.archive.AppendMessage(ctx, e.UserID, e.Name, text); err != nil {
			h.log.Error("Archiving message failed", "conn", conn.ID(), "name", e.Name, "userId", e.UserID, "error", err)
		}
	}

	everyone := h.registry.Snapshot()
	h.deliver(everyone, protocol.Message(e.Name, text, len(everyone), h.now()))
}

func (h *Hub) typing(conn Conn, e protocol.Typing) {
	everyone := h.registry.Snapshot()
	others := lo.Reject(everyone, func(r Record, _ int) bool { return r.Conn == conn })
	h.deliver(others, protocol.TypingIndicator(e.Name, e.IsTyping, len(everyone), h.now()))
}

// deliver encodes ev once and hands it to each target independently.
func (h *Hub) deliver(targets []Record, ev protocol.OutboundEvent) int {
	frame, err := protocol.Encode(ev)
	if err != nil {
		h.log.Error("Encoding outbound event failed", "type", ev.Kind, "error", err)
		return 0
	}

	delivered := 0
	for _, target := range targets {
		if err := h.safeSend(target.Conn, frame); err != nil {
			h.log.Warn("Skipping unreachable connection", "conn", target.Conn.ID(), "type", ev.Kind, "error", err)
			continue
		}
		delivered++
	}
	h.log.Debug("Broadcast", "type", ev.Kind, "targets", len(targets), "delivered", delivered)
	return delivered
}

func (h *Hub) safeSend(conn Conn, frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrDelivery, r)
		}
	}()

	if sendErr := conn.Send(frame); sendErr != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, sendErr)
	}
	return nil
}
