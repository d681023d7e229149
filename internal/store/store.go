// Package store persists users and chat history. Two backends share the
// UserStore and MessageStore contracts: an embedded badger database and
// postgres.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("username already exists")
)

// User is a registered account. PasswordHash is never sent to clients.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Message is one archived chat message.
type Message struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"messageText"`
	Timestamp time.Time `json:"timestamp"`
}

// Filter narrows ListMessages. A zero UserID lists everything.
type Filter struct {
	UserID int64
}

type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	UserByID(ctx context.Context, id int64) (User, error)
}

type MessageStore interface {
	// AppendMessage assigns the id and, if unset, the timestamp.
	AppendMessage(ctx context.Context, message Message) (Message, error)
	// ListMessages returns messages ordered by timestamp, then id, ascending.
	ListMessages(ctx context.Context, filter Filter) ([]Message, error)
	MessageByID(ctx context.Context, id int64) (Message, error)
	DeleteMessage(ctx context.Context, id int64) error
}

// Store is a complete backend.
type Store interface {
	UserStore
	MessageStore
	Close() error
}
