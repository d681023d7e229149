package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register_Then_Remove(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("a")

	// Given a registered connection
	req.NoError(registry.Register(conn))
	req.Equal(1, registry.Count())

	record, ok := registry.Lookup(conn)
	req.True(ok)
	req.False(record.Joined)
	req.Empty(record.DisplayName)

	// When it is removed
	removed, ok := registry.Remove(conn)

	// Then the prior record comes back and the registry is empty
	req.True(ok)
	req.Equal(conn, removed.Conn)
	req.Zero(registry.Count())
	req.Empty(registry.Snapshot())
}

func TestRegistry_Register_Twice(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("a")

	req.NoError(registry.Register(conn))
	req.ErrorIs(registry.Register(conn), ErrDuplicateConnection)
	req.Equal(1, registry.Count())
}

func TestRegistry_Connections_Compare_By_Identity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Two connections with identical attributes are still distinct
	req.NoError(registry.Register(newFakeConn("same")))
	req.NoError(registry.Register(newFakeConn("same")))

	req.Equal(2, registry.Count())
}

func TestRegistry_SetDisplayName_Overwrites(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("a")
	req.NoError(registry.Register(conn))

	req.NoError(registry.SetDisplayName(conn, "alice"))
	req.NoError(registry.SetDisplayName(conn, "alicia"))

	record, ok := registry.Lookup(conn)
	req.True(ok)
	req.True(record.Joined)
	req.Equal("alicia", record.DisplayName)
	req.Equal(1, registry.Count())
}

func TestRegistry_SetDisplayName_After_Remove(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("a")
	req.NoError(registry.Register(conn))
	registry.Remove(conn)

	err := registry.SetDisplayName(conn, "late")

	req.ErrorIs(err, ErrUnknownConnection)
	req.Zero(registry.Count())
}

func TestRegistry_Remove_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newFakeConn("a")
	req.NoError(registry.Register(conn))

	var wg sync.WaitGroup
	removed := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := registry.Remove(conn)
			removed <- ok
		}()
	}
	wg.Wait()
	close(removed)

	wins := 0
	for ok := range removed {
		if ok {
			wins++
		}
	}
	req.Equal(1, wins)
}

func TestRegistry_Snapshot_Is_Ordered_And_Detached(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conns := make([]*fakeConn, 5)
	for i := range conns {
		conns[i] = newFakeConn(fmt.Sprintf("c%d", i))
		req.NoError(registry.Register(conns[i]))
	}
	req.NoError(registry.SetDisplayName(conns[2], "carol"))

	snapshot := registry.Snapshot()

	// Mutations after the snapshot do not show through
	registry.Remove(conns[0])
	req.NoError(registry.SetDisplayName(conns[2], "caroline"))

	req.Len(snapshot, 5)
	for i, record := range snapshot {
		req.Equal(conns[i], record.Conn)
	}
	req.Equal("carol", snapshot[2].DisplayName)
	req.Equal(4, registry.Count())
}

func TestRegistry_Concurrent_Mutation(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	const workers = 50

	var wg sync.WaitGroup
	kept := make([]*fakeConn, workers)
	for i := 0; i < workers; i++ {
		kept[i] = newFakeConn(fmt.Sprintf("kept-%d", i))
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, registry.Register(kept[i]))
			assert.NoError(t, registry.SetDisplayName(kept[i], fmt.Sprintf("user-%d", i)))
		}(i)
		go func(i int) {
			defer wg.Done()
			gone := newFakeConn(fmt.Sprintf("gone-%d", i))
			assert.NoError(t, registry.Register(gone))
			_ = registry.Snapshot()
			_, ok := registry.Remove(gone)
			assert.True(t, ok)
		}(i)
	}
	wg.Wait()

	req.Equal(workers, registry.Count())
	for _, record := range registry.Snapshot() {
		req.True(record.Joined)
	}
}
