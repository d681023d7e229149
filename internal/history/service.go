// Package history stores and retrieves archived chat messages on behalf of
// both the REST surface and the real-time hub.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Tyrowin/chatrelay/internal/store"
)

const MaxTextLength = 1000

var (
	ErrValidation  = errors.New("validation failed")
	ErrForbidden   = errors.New("not the author of this message")
	ErrUnknownUser = errors.New("user not found")
)

var validate = validator.New()

type draft struct {
	Text string `validate:"required,max=1000"`
}

type Service struct {
	messages store.MessageStore
	users    store.UserStore
	log      *slog.Logger
	now      func() time.Time
}

func NewService(messages store.MessageStore, users store.UserStore, log *slog.Logger) *Service {
	return &Service{messages: messages, users: users, log: log, now: time.Now}
}

// Send archives text for a user known only by id.
func (s *Service) Send(ctx context.Context, userID int64, text string) (store.Message, error) {
	return s.AppendMessage(ctx, userID, "", text)
}

// AppendMessage archives text authored by userID. When displayName is empty
// the author is looked up and must exist; otherwise displayName is stored as
// given.
func (s *Service) AppendMessage(ctx context.Context, userID int64, displayName, text string) (store.Message, error) {
	d := draft{Text: strings.TrimSpace(text)}
	if err := validate.Struct(d); err != nil {
		return store.Message{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if displayName == "" {
		user, err := s.users.UserByID(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return store.Message{}, fmt.Errorf("%w: id %d", ErrUnknownUser, userID)
		}
		if err != nil {
			return store.Message{}, err
		}
		displayName = user.Username
	}

	message, err := s.messages.AppendMessage(ctx, store.Message{
		UserID:    userID,
		Username:  displayName,
		Text:      d.Text,
		Timestamp: s.now().UTC(),
	})
	if err != nil {
		return store.Message{}, fmt.Errorf("append message: %w", err)
	}
	s.log.Debug("Message archived", "id", message.ID, "userId", userID, "name", displayName)
	return message, nil
}

func (s *Service) List(ctx context.Context, filter store.Filter) ([]store.Message, error) {
	return s.messages.ListMessages(ctx, filter)
}

// Delete removes a message on behalf of userID, who must be its author.
func (s *Service) Delete(ctx context.Context, messageID, userID int64) error {
	message, err := s.messages.MessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.UserID != userID {
		s.log.Warn("Refusing foreign delete", "id", messageID, "userId", userID, "authorId", message.UserID)
		return ErrForbidden
	}
	if err := s.messages.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	s.log.Info("Message deleted", "id", messageID, "userId", userID)
	return nil
}
