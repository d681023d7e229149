// Package auth registers users and verifies their credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Tyrowin/chatrelay/internal/store"
	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrValidation         = errors.New("validation failed")
)

var validate = validator.New()

type registration struct {
	Username string `validate:"required,min=3"`
	Password string `validate:"required,min=4,max=72"`
}

type Service struct {
	users store.UserStore
	log   *slog.Logger
}

func NewService(users store.UserStore, log *slog.Logger) *Service {
	return &Service{users: users, log: log}
}

// Register creates an account. The username is trimmed before it is checked
// and stored.
func (s *Service) Register(ctx context.Context, username, password string) (store.User, error) {
	req := registration{Username: strings.TrimSpace(username), Password: password}
	if err := validate.Struct(req); err != nil {
		return store.User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return store.User{}, err
	}
	user, err := s.users.CreateUser(ctx, req.Username, hash)
	if err != nil {
		return store.User{}, err
	}
	s.log.Info("User registered", "id", user.ID, "name", user.Username)
	return user, nil
}

// VerifyCredentials returns the user id for a matching username and password.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) VerifyCredentials(ctx context.Context, username, password string) (store.User, error) {
	user, err := s.users.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, err
	}

	ok, err := ComparePassword(user.PasswordHash, password)
	if err != nil {
		s.log.Warn("Stored password hash unusable", "id", user.ID, "error", err)
		return store.User{}, ErrInvalidCredentials
	}
	if !ok {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) FindByUsername(ctx context.Context, username string) (store.User, error) {
	return s.users.UserByUsername(ctx, strings.TrimSpace(username))
}
