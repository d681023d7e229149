package server

import (
	"errors"
	"strings"
)

var (
	// ErrSendQueueFull is returned by Client.Send when the peer cannot keep up.
	// The client is closed as a side effect.
	ErrSendQueueFull = errors.New("send queue full")
	// ErrConnectionClosed is returned by Client.Send after Close.
	ErrConnectionClosed = errors.New("connection closed")
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
