package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const (
	userPrefix      = "user:"
	userIDPrefix    = "userid:"
	messagePrefix   = "msg:"
	messageIDPrefix = "msgid:"

	sequenceBandwidth = 100
)

// Badger is the embedded backend.
//
// Key layout:
//
//	user:{username}                      -> User (JSON)
//	userid:{id}                          -> username
//	msg:{unix nanos %019d}:{id %019d}    -> Message (JSON)
//	msgid:{id %019d}                     -> msg:... key
//
// Zero padding keeps lexicographic key order equal to chronological order.
type Badger struct {
	db          *badger.DB
	log         *slog.Logger
	userSeq     *badger.Sequence
	messageSeq  *badger.Sequence
	ownsDB      bool
	idsReleased bool
}

// OpenBadger opens (or creates) a badger database at path.
func OpenBadger(path string, log *slog.Logger) (*Badger, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	b, err := NewBadger(db, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	b.ownsDB = true
	return b, nil
}

// NewBadger wraps an already open database. Close releases the id sequences
// but leaves db open.
func NewBadger(db *badger.DB, log *slog.Logger) (*Badger, error) {
	userSeq, err := db.GetSequence([]byte("seq:users"), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("user sequence: %w", err)
	}
	messageSeq, err := db.GetSequence([]byte("seq:messages"), sequenceBandwidth)
	if err != nil {
		_ = userSeq.Release()
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &Badger{db: db, log: log, userSeq: userSeq, messageSeq: messageSeq}, nil
}

// Close releases the id sequences and, for OpenBadger stores, the database.
func (b *Badger) Close() error {
	if !b.idsReleased {
		b.idsReleased = true
		if err := b.userSeq.Release(); err != nil {
			b.log.Warn("Releasing user sequence failed", "error", err)
		}
		if err := b.messageSeq.Release(); err != nil {
			b.log.Warn("Releasing message sequence failed", "error", err)
		}
	}
	if b.ownsDB {
		return b.db.Close()
	}
	return nil
}

func (b *Badger) CreateUser(_ context.Context, username, passwordHash string) (User, error) {
	next, err := b.userSeq.Next()
	if err != nil {
		return User{}, fmt.Errorf("next user id: %w", err)
	}
	user := User{
		ID:           int64(next) + 1,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return User{}, err
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		key := []byte(userPrefix + username)
		if _, err := txn.Get(key); err == nil {
			return ErrUserExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(userIDKey(user.ID), []byte(username))
	})
	if err != nil {
		return User{}, err
	}
	b.log.Debug("User stored", "id", user.ID, "username", username)
	return user, nil
}

func (b *Badger) UserByUsername(_ context.Context, username string) (User, error) {
	var user User
	err := b.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(userPrefix+username), &user)
	})
	return user, err
}

func (b *Badger) UserByID(_ context.Context, id int64) (User, error) {
	var user User
	err := b.db.View(func(txn *badger.Txn) error {
		username, err := getValue(txn, userIDKey(id))
		if err != nil {
			return err
		}
		return getJSON(txn, []byte(userPrefix+string(username)), &user)
	})
	return user, err
}

func (b *Badger) AppendMessage(_ context.Context, message Message) (Message, error) {
	next, err := b.messageSeq.Next()
	if err != nil {
		return Message{}, fmt.Errorf("next message id: %w", err)
	}
	message.ID = int64(next) + 1
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(message)
	if err != nil {
		return Message{}, err
	}

	primary := messageKey(message)
	err = b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(primary, data); err != nil {
			return err
		}
		return txn.Set(messageIDKey(message.ID), primary)
	})
	if err != nil {
		return Message{}, err
	}
	return message, nil
}

func (b *Badger) ListMessages(_ context.Context, filter Filter) ([]Message, error) {
	messages := make([]Message, 0)
	err := eachMessage(b.db, func(_ string, message Message) error {
		messages = append(messages, message)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if filter.UserID != 0 {
		messages = lo.Filter(messages, func(m Message, _ int) bool { return m.UserID == filter.UserID })
	}
	return messages, nil
}

func (b *Badger) MessageByID(_ context.Context, id int64) (Message, error) {
	var message Message
	err := b.db.View(func(txn *badger.Txn) error {
		primary, err := getValue(txn, messageIDKey(id))
		if err != nil {
			return err
		}
		return getJSON(txn, primary, &message)
	})
	return message, err
}

func (b *Badger) DeleteMessage(_ context.Context, id int64) error {
	return b.db.Update(func(txn *badger.Txn) error {
		primary, err := getValue(txn, messageIDKey(id))
		if err != nil {
			return err
		}
		if err := txn.Delete(primary); err != nil {
			return err
		}
		return txn.Delete(messageIDKey(id))
	})
}

// Each iterates every stored message in order without buffering.
func (b *Badger) Each(fn func(key string, message Message) error) error {
	return eachMessage(b.db, fn)
}

// BadgerReader is a read-only view of a badger store, usable while a server
// process holds the database.
type BadgerReader struct {
	db *badger.DB
}

func OpenBadgerReader(path string) (*BadgerReader, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s read-only: %w", path, err)
	}
	return &BadgerReader{db: db}, nil
}

func (r *BadgerReader) Each(fn func(key string, message Message) error) error {
	return eachMessage(r.db, fn)
}

func (r *BadgerReader) Close() error {
	return r.db.Close()
}

func eachMessage(db *badger.DB, fn func(key string, message Message) error) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(messagePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var message Message
			if err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &message)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			if err := fn(string(item.Key()), message); err != nil {
				return err
			}
		}
		return nil
	})
}

func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func getJSON(txn *badger.Txn, key []byte, out any) error {
	value, err := getValue(txn, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(value, out)
}

func userIDKey(id int64) []byte {
	return fmt.Appendf(nil, "%s%019d", userIDPrefix, id)
}

func messageIDKey(id int64) []byte {
	return fmt.Appendf(nil, "%s%019d", messageIDPrefix, id)
}

func messageKey(m Message) []byte {
	return fmt.Appendf(nil, "%s%019d:%019d", messagePrefix, m.Timestamp.UnixNano(), m.ID)
}
