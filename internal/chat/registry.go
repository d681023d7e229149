// Package chat holds the transport-agnostic core of the relay: the registry of
// live connections and the hub that turns inbound events into fan-out.
package chat

import (
	"errors"
	"slices"
	"sync"

	"github.com/samber/lo"
)

var (
	// ErrDuplicateConnection means a connection was registered twice. It
	// indicates a transport bug.
	ErrDuplicateConnection = errors.New("connection already registered")
	// ErrUnknownConnection means an event arrived for a connection that has
	// already been removed.
	ErrUnknownConnection = errors.New("connection not registered")
	// ErrDelivery wraps a failed write to one fan-out target.
	ErrDelivery = errors.New("delivery failed")
)

// Conn is the registry's view of a live bidirectional channel. Implementations
// must be comparable by identity (pointer receivers).
type Conn interface {
	// ID is a stable identifier used for logging.
	ID() string
	// Send queues one encoded frame for delivery. It must not block on a
	// slow peer.
	Send(frame []byte) error
	// Close tears the channel down. Closing more than once is allowed.
	Close() error
}

// Record is a point-in-time view of one registered connection.
type Record struct {
	Conn        Conn
	DisplayName string
	// Joined reports whether a join event bound DisplayName.
	Joined bool
}

type entry struct {
	seq    uint64
	record Record
}

// Registry is a concurrency-safe set of live connections and the display name
// bound to each.
type Registry struct {
	mu      sync.RWMutex
	entries map[Conn]*entry
	nextSeq uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Conn]*entry)}
}

// Register adds conn with no display name.
func (r *Registry) Register(conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[conn]; exists {
		return ErrDuplicateConnection
	}
	r.nextSeq++
	r.entries[conn] = &entry{seq: r.nextSeq, record: Record{Conn: conn}}
	return nil
}

// SetDisplayName binds name to conn, replacing any earlier name.
func (r *Registry) SetDisplayName(conn Conn, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[conn]
	if !exists {
		return ErrUnknownConnection
	}
	e.record.DisplayName = name
	e.record.Joined = true
	return nil
}

// Remove deletes conn and returns the record it had. The second result is
// false if conn was not registered, so concurrent callers can race safely.
func (r *Registry) Remove(conn Conn) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[conn]
	if !exists {
		return Record{}, false
	}
	delete(r.entries, conn)
	return e.record, true
}

// Lookup returns the current record of conn.
func (r *Registry) Lookup(conn Conn) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[conn]
	if !exists {
		return Record{}, false
	}
	return e.record, true
}

// Snapshot copies every record in registration order. The copy is detached
// from the registry and safe to iterate while it changes.
func (r *Registry) Snapshot() []Record {
	r.mu.RLock()
	entries := lo.MapToSlice(r.entries, func(_ Conn, e *entry) entry { return *e })
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return lo.Map(entries, func(e entry, _ int) Record { return e.record })
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
