package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind is the type tag of an outbound event.
type Kind string

// Outbound kinds.
const (
	KindConnected  Kind = "connected"
	KindUserJoined Kind = "user_joined"
	KindUserLeft   Kind = "user_left"
	KindMessage    Kind = "message"
	KindTyping     Kind = "typing"
)

// SystemUsername is the username carried by server-originated events.
const SystemUsername = "SYSTEM"

// OutboundEvent is an immutable server-to-client event. Build it with one of
// the constructors below.
type OutboundEvent struct {
	Kind        Kind
	Username    string
	Body        string
	From        string
	OnlineUsers int
	SentAt      time.Time
	// IsTyping is set only on typing events.
	IsTyping *bool
}

type outboundFrame struct {
	Username    string `json:"username"`
	Type        Kind   `json:"type"`
	Message     string `json:"message"`
	From        string `json:"from,omitempty"`
	OnlineUsers int    `json:"onlineUsers"`
	Timestamp   int64  `json:"timestamp"`
	IsTyping    *bool  `json:"isTyping,omitempty"`
}

// Connected is the unicast greeting sent to a freshly accepted connection.
func Connected(online int, at time.Time) OutboundEvent {
	return OutboundEvent{
		Kind:        KindConnected,
		Username:    SystemUsername,
		Body:        "Connected to chat server",
		OnlineUsers: online,
		SentAt:      at,
	}
}

// UserJoined announces that name joined the chat.
func UserJoined(name string, online int, at time.Time) OutboundEvent {
	return OutboundEvent{
		Kind:        KindUserJoined,
		Username:    SystemUsername,
		Body:        name + " joined the chat",
		From:        name,
		OnlineUsers: online,
		SentAt:      at,
	}
}

// UserLeft announces that name left the chat.
func UserLeft(name string, online int, at time.Time) OutboundEvent {
	return OutboundEvent{
		Kind:        KindUserLeft,
		Username:    SystemUsername,
		Body:        name + " left the chat",
		From:        name,
		OnlineUsers: online,
		SentAt:      at,
	}
}

// Message relays a chat message written by name.
func Message(name, text string, online int, at time.Time) OutboundEvent {
	return OutboundEvent{
		Kind:        KindMessage,
		Username:    name,
		Body:        text,
		From:        name,
		OnlineUsers: online,
		SentAt:      at,
	}
}

// TypingIndicator relays a typing state change. The body is the rendered
// "<name> is typing..." text while typing and empty once typing stops.
func TypingIndicator(name string, isTyping bool, online int, at time.Time) OutboundEvent {
	body := ""
	if isTyping {
		body = name + " is typing..."
	}
	return OutboundEvent{
		Kind:        KindTyping,
		Username:    name,
		Body:        body,
		From:        name,
		OnlineUsers: online,
		SentAt:      at,
		IsTyping:    &isTyping,
	}
}

// Encode renders an outbound event as one JSON text frame.
func Encode(ev OutboundEvent) ([]byte, error) {
	return json.Marshal(outboundFrame{
		Username:    ev.Username,
		Type:        ev.Kind,
		Message:     ev.Body,
		From:        ev.From,
		OnlineUsers: ev.OnlineUsers,
		Timestamp:   ev.SentAt.UnixMilli(),
		IsTyping:    ev.IsTyping,
	})
}

// ParseOutbound is the client-side inverse of Encode.
func ParseOutbound(raw []byte) (OutboundEvent, error) {
	var f outboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return OutboundEvent{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if f.Type == "" {
		return OutboundEvent{}, fmt.Errorf("%w: missing type", ErrDecode)
	}
	return OutboundEvent{
		Kind:        f.Type,
		Username:    f.Username,
		Body:        f.Message,
		From:        f.From,
		OnlineUsers: f.OnlineUsers,
		SentAt:      time.UnixMilli(f.Timestamp),
		IsTyping:    f.IsTyping,
	}, nil
}
