// Package testhelpers provides WebSocket and HTTP utilities shared by the
// transport and REST tests.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatrelay/internal/protocol"
)

// DefaultOrigin is the origin the dial helpers present.
const DefaultOrigin = "http://localhost:8080"

// ReadTimeout bounds every ReadEvent call.
const ReadTimeout = 2 * time.Second

// WSURL converts an httptest server URL into a WebSocket URL for path.
func WSURL(serverURL, path string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + path
}

// DialWebSocket dials url presenting origin. An empty origin sends no Origin
// header. The handshake response is returned for status assertions.
func DialWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// ConnectWebSocket dials url with DefaultOrigin and waits for the greeting,
// so the connection is registered when it returns.
func ConnectWebSocket(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := DialWebSocket(url, DefaultOrigin)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	greeting := ReadEvent(t, conn)
	require.Equal(t, protocol.KindConnected, greeting.Kind)
	return conn
}

// SendJSON writes v as one text frame.
func SendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

// SendRaw writes data as one text frame.
func SendRaw(t *testing.T, conn *websocket.Conn, data string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

// Join announces name on conn.
func Join(t *testing.T, conn *websocket.Conn, name string) {
	t.Helper()
	SendJSON(t, conn, map[string]any{"type": "join", "username": name})
}

// Say sends a chat message as name.
func Say(t *testing.T, conn *websocket.Conn, name, text string) {
	t.Helper()
	SendJSON(t, conn, map[string]any{"type": "message", "username": name, "message": text})
}

// ReadEvent reads and parses the next frame, failing after ReadTimeout.
func ReadEvent(t *testing.T, conn *websocket.Conn) protocol.OutboundEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ReadTimeout)))
	kind, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)

	ev, err := protocol.ParseOutbound(raw)
	require.NoError(t, err, "frame %s", raw)
	return ev
}

// ExpectEvent reads the next frame and checks its kind.
func ExpectEvent(t *testing.T, conn *websocket.Conn, kind protocol.Kind) protocol.OutboundEvent {
	t.Helper()

	ev := ReadEvent(t, conn)
	require.Equal(t, kind, ev.Kind, "body %q", ev.Body)
	return ev
}

// ExpectNoEvent asserts nothing arrives on conn within wait.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, raw, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no frame, got %s", raw)
	}
	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected a read timeout, got %v", err)
}

// ExpectClosed waits until the server closes conn.
func ExpectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ReadTimeout)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var netErr net.Error
			require.False(t, errors.As(err, &netErr) && netErr.Timeout(), "connection still open")
			return
		}
	}
}

// CloseWebSocket sends a normal close frame and closes conn.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// DoJSON performs an HTTP request with an optional JSON body and bearer token
// and returns the status code and body.
func DoJSON(t *testing.T, method, url string, body any, token string) (int, []byte) {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

// Eventually polls cond until it holds or timeout passes.
func Eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, ReadTimeout, 10*time.Millisecond, msg)
}
