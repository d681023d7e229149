package auth

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Tyrowin/chatrelay/internal/store"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	s, err := store.OpenBadger(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewService(s, log)
}

func Test_Register_Then_Verify(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc := newTestService(t)

	// Given a registered user with surrounding whitespace in the name
	user, err := svc.Register(ctx, "  alice ", "secret")
	req.NoError(err)
	req.Equal("alice", user.Username)
	req.NotEqual("secret", user.PasswordHash)

	// When the right password is supplied
	verified, err := svc.VerifyCredentials(ctx, "alice", "secret")

	// Then the same user comes back
	req.NoError(err)
	req.Equal(user.ID, verified.ID)
}

func Test_Verify_Rejects_Wrong_Password_And_Unknown_User_Alike(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Register(ctx, "alice", "secret")
	req.NoError(err)

	_, wrong := svc.VerifyCredentials(ctx, "alice", "nope")
	_, unknown := svc.VerifyCredentials(ctx, "mallory", "secret")

	req.ErrorIs(wrong, ErrInvalidCredentials)
	req.ErrorIs(unknown, ErrInvalidCredentials)
	req.Equal(wrong.Error(), unknown.Error())
}

func Test_Register_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	cases := map[string]struct {
		username string
		password string
	}{
		"short username":     {username: "al", password: "secret"},
		"blank username":     {username: "   ", password: "secret"},
		"short password":     {username: "alice", password: "abc"},
		"oversized password": {username: "alice", password: strings.Repeat("x", 73)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.username, tc.password)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func Test_Register_Duplicate(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc := newTestService(t)
	_, err := svc.Register(ctx, "alice", "secret")
	req.NoError(err)

	_, err = svc.Register(ctx, "alice", "other")

	req.ErrorIs(err, store.ErrUserExists)
}

func Test_Find_By_Username(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	svc := newTestService(t)
	user, err := svc.Register(ctx, "alice", "secret")
	req.NoError(err)

	found, err := svc.FindByUsername(ctx, "alice")
	req.NoError(err)
	req.Equal(user.ID, found.ID)

	_, err = svc.FindByUsername(ctx, "bob")
	req.ErrorIs(err, store.ErrNotFound)
}

func Test_Token_Round_Trip(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("test-secret", time.Hour)

	signed, err := tokens.Sign(7, "alice")
	req.NoError(err)
	claims, err := tokens.Verify(signed)

	req.NoError(err)
	req.Equal(int64(7), claims.UserID)
	req.Equal("alice", claims.Username)
}

func Test_Token_Rejects_Foreign_Secret(t *testing.T) {
	req := require.New(t)
	signed, err := NewTokens("one", time.Hour).Sign(7, "alice")
	req.NoError(err)

	_, err = NewTokens("two", time.Hour).Verify(signed)

	req.ErrorIs(err, ErrInvalidToken)
}

func Test_Token_Expires(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens("test-secret", time.Minute)
	issued := time.Now()
	tokens.now = func() time.Time { return issued }
	signed, err := tokens.Sign(7, "alice")
	req.NoError(err)

	// When the clock moves past the ttl
	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tokens.Verify(signed)

	// Then the token is refused
	req.ErrorIs(err, ErrInvalidToken)
}

func Test_Token_Rejects_Garbage(t *testing.T) {
	_, err := NewTokens("test-secret", time.Hour).Verify("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
