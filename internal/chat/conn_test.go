package chat

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/protocol"
)

var errBrokenPipe = errors.New("broken pipe")

// fakeConn records every frame it is handed.
type fakeConn struct {
	id string

	mu      sync.Mutex
	frames  [][]byte
	failing bool
	panics  bool
	closed  bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.panics {
		panic("send on closed channel")
	}
	if c.failing || c.closed {
		return errBrokenPipe
	}
	c.frames = append(c.frames, append([]byte(nil), frame...))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing = true
}

// events decodes and clears the frames received so far.
func (c *fakeConn) events(t *testing.T) []protocol.OutboundEvent {
	t.Helper()
	c.mu.Lock()
	frames := c.frames
	c.frames = nil
	c.mu.Unlock()

	events := make([]protocol.OutboundEvent, 0, len(frames))
	for _, frame := range frames {
		ev, err := protocol.ParseOutbound(frame)
		require.NoError(t, err)
		events = append(events, ev)
	}
	return events
}

var fixedNow = time.UnixMilli(1700000000000)

func newTestHub(opts ...Option) *Hub {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewHub(NewRegistry(), log, opts...)
}
