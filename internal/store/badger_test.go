package store

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestBadger(t *testing.T) *Badger {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	b, err := NewBadger(db, logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = b.Close()
		_ = db.Close()
	})
	return b
}

func Test_Create_And_Find_User(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	b := newTestBadger(t)

	alice, err := b.CreateUser(ctx, "alice", "hash-a")
	req.NoError(err)
	bob, err := b.CreateUser(ctx, "bob", "hash-b")
	req.NoError(err)

	req.Positive(alice.ID)
	req.Greater(bob.ID, alice.ID)

	byName, err := b.UserByUsername(ctx, "alice")
	req.NoError(err)
	req.Equal(alice.ID, byName.ID)
	req.Equal("hash-a", byName.PasswordHash)

	byID, err := b.UserByID(ctx, bob.ID)
	req.NoError(err)
	req.Equal("bob", byID.Username)
}

func Test_Create_User_Twice(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	b := newTestBadger(t)

	_, err := b.CreateUser(ctx, "alice", "hash")
	req.NoError(err)
	_, err = b.CreateUser(ctx, "alice", "other")

	req.ErrorIs(err, ErrUserExists)
}

func Test_Unknown_User(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	b := newTestBadger(t)

	_, err := b.UserByUsername(ctx, "nobody")
	req.ErrorIs(err, ErrNotFound)
	_, err = b.UserByID(ctx, 99)
	req.ErrorIs(err, ErrNotFound)
}

func Test_Append_And_List_Messages_In_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	b := newTestBadger(t)
	at := time.Now().UTC()

	// Given messages appended out of chronological order
	inputs := []Message{
		{UserID: 1, Username: "alice", Text: "second", Timestamp: at.Add(time.Minute)},
		{UserID: 2, Username: "bob", Text: "first", Timestamp: at},
		{UserID: 1, Username: "alice", Text: "third", Timestamp: at.Add(2 * time.Minute)},
	}
	for _, m := range inputs {
		stored, err := b.AppendMessage(ctx, m)
		req.NoError(err)
		req.Positive(stored.ID)
	}

	// When listing everything
	all, err := b.ListMessages(ctx, Filter{})
	req.NoError(err)

	// Then they come back ascending by timestamp
	req.Len(all, 3)
	req.Equal("first", all[0].Text)
	req.Equal("second", all[1].Text)
	req.Equal("third", all[2].Text)

	// And a user filter keeps only that author
	mine, err := b.ListMessages(ctx, Filter{UserID: 1})
	req.NoError(err)
	req.Len(mine, 2)
	for _, m := range mine {
		req.Equal(int64(1), m.UserID)
	}
}

func Test_List_Messages_Empty(t *testing.T) {
	req := require.New(t)
	b := newTestBadger(t)

	messages, err := b.ListMessages(context.Background(), Filter{})

	req.NoError(err)
	req.NotNil(messages)
	req.Empty(messages)
}

func Test_Append_Sets_Timestamp(t *testing.T) {
	req := require.New(t)
	b := newTestBadger(t)
	before := time.Now()

	stored, err := b.AppendMessage(context.Background(), Message{UserID: 1, Username: "alice", Text: "hi"})

	req.NoError(err)
	req.WithinDuration(before, stored.Timestamp, 5*time.Second)
}

func Test_Find_And_Delete_Message(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	b := newTestBadger(t)

	stored, err := b.AppendMessage(ctx, Message{UserID: 1, Username: "alice", Text: "bye"})
	req.NoError(err)

	found, err := b.MessageByID(ctx, stored.ID)
	req.NoError(err)
	req.Equal("bye", found.Text)

	req.NoError(b.DeleteMessage(ctx, stored.ID))

	_, err = b.MessageByID(ctx, stored.ID)
	req.ErrorIs(err, ErrNotFound)
	req.ErrorIs(b.DeleteMessage(ctx, stored.ID), ErrNotFound)

	all, err := b.ListMessages(ctx, Filter{})
	req.NoError(err)
	req.Empty(all)
}

func Test_Each_Visits_Keys(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	b := newTestBadger(t)
	_, err := b.AppendMessage(ctx, Message{UserID: 1, Username: "alice", Text: "one"})
	req.NoError(err)
	_, err = b.AppendMessage(ctx, Message{UserID: 1, Username: "alice", Text: "two"})
	req.NoError(err)

	var keys []string
	err = b.Each(func(key string, _ Message) error {
		keys = append(keys, key)
		return nil
	})

	req.NoError(err)
	req.Len(keys, 2)
	req.Contains(keys[0], messagePrefix)
}

func Test_Ids_Survive_Reopen(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	first, err := OpenBadger(dir, log)
	req.NoError(err)
	m1, err := first.AppendMessage(ctx, Message{UserID: 1, Username: "a", Text: "x"})
	req.NoError(err)
	req.NoError(first.Close())

	second, err := OpenBadger(dir, log)
	req.NoError(err)
	defer second.Close()
	m2, err := second.AppendMessage(ctx, Message{UserID: 1, Username: "a", Text: "y"})
	req.NoError(err)

	req.Greater(m2.ID, m1.ID)
}

func Test_Reader_Sees_Closed_Store(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	b, err := OpenBadger(dir, logs.GetLoggerFromLevel(slog.LevelDebug))
	req.NoError(err)
	_, err = b.AppendMessage(ctx, Message{UserID: 3, Username: "carol", Text: "archived"})
	req.NoError(err)
	req.NoError(b.Close())

	reader, err := OpenBadgerReader(dir)
	req.NoError(err)
	defer reader.Close()

	var texts []string
	req.NoError(reader.Each(func(_ string, m Message) error {
		texts = append(texts, m.Text)
		return nil
	}))
	req.Equal([]string{"archived"}, texts)
}
