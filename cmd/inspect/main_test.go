package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/store"
)

func Test_Run_Prints_Filtered_Table(t *testing.T) {
	req := require.New(t)
	color.Disable()
	dir := t.TempDir()
	ctx := context.Background()

	// Given a store with messages from two users
	s, err := store.OpenBadger(dir, logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)
	_, err = s.AppendMessage(ctx, store.Message{UserID: 1, Username: "alice", Text: "from alice"})
	req.NoError(err)
	_, err = s.AppendMessage(ctx, store.Message{UserID: 2, Username: "bob", Text: "from bob"})
	req.NoError(err)
	req.NoError(s.Close())

	// When only user 2 is requested
	var out bytes.Buffer
	req.NoError(run(&out, dir, 2))

	// Then only bob's row is printed
	req.Contains(out.String(), "from bob")
	req.NotContains(out.String(), "from alice")
	req.Contains(out.String(), "1 message(s)")
}

func Test_Truncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, strings.Repeat("é", 7)+"...", truncate(strings.Repeat("é", 20), 10))
}
