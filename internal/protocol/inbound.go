package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrDecode is returned for malformed frames and frames missing a field
	// their type requires.
	ErrDecode = errors.New("decode inbound frame")
	// ErrUnknownType is returned for well-formed frames whose type tag is not
	// understood. Callers ignore these frames.
	ErrUnknownType = errors.New("unknown inbound frame type")
)

// Inbound type tags.
const (
	TypeJoin    = "join"
	TypeMessage = "message"
	TypeTyping  = "typing"
)

var validate = validator.New()

// InboundEvent is one of Join, ChatMessage or Typing.
type InboundEvent interface {
	// DisplayName is the name the client announced in the frame.
	DisplayName() string
	inbound()
}

// Join binds a display name to the sending connection.
type Join struct {
	Name string
}

// ChatMessage is a text message to relay to every participant.
type ChatMessage struct {
	Name string
	Text string
	// UserID is the optional storage identity of the author; zero when absent.
	UserID int64
}

// Typing signals that the sender started or stopped typing.
type Typing struct {
	Name     string
	IsTyping bool
}

func (j Join) DisplayName() string        { return j.Name }
func (m ChatMessage) DisplayName() string { return m.Name }
func (t Typing) DisplayName() string      { return t.Name }

func (Join) inbound()        {}
func (ChatMessage) inbound() {}
func (Typing) inbound()      {}

type envelope struct {
	Type string `json:"type"`
}

type joinFrame struct {
	Username string `json:"username" validate:"required"`
}

type messageFrame struct {
	Username string  `json:"username" validate:"required"`
	Message  *string `json:"message" validate:"required"`
	UserID   *int64  `json:"userId" validate:"omitempty,gte=0"`
}

type typingFrame struct {
	Username string `json:"username" validate:"required"`
	IsTyping *bool  `json:"isTyping" validate:"required"`
}

// Decode parses one inbound frame. It fails closed: anything that is not a
// complete, known variant yields ErrDecode or ErrUnknownType.
func Decode(raw []byte) (InboundEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	switch env.Type {
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrDecode)
	case TypeJoin:
		var f joinFrame
		if err := decodeFrame(raw, &f); err != nil {
			return nil, err
		}
		return Join{Name: f.Username}, nil
	case TypeMessage:
		var f messageFrame
		if err := decodeFrame(raw, &f); err != nil {
			return nil, err
		}
		ev := ChatMessage{Name: f.Username, Text: *f.Message}
		if f.UserID != nil {
			ev.UserID = *f.UserID
		}
		return ev, nil
	case TypeTyping:
		var f typingFrame
		if err := decodeFrame(raw, &f); err != nil {
			return nil, err
		}
		return Typing{Name: f.Username, IsTyping: *f.IsTyping}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func decodeFrame(raw []byte, frame any) error {
	if err := json.Unmarshal(raw, frame); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := validate.Struct(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
