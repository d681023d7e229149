package server

import "net/http"

// WebSocketPath is where the relay accepts connections.
const WebSocketPath = "/ws/chat"

// SetupRoutes returns a ServeMux with the relay's own endpoints: the health
// text, the WebSocket endpoint and the test page.
func SetupRoutes(relay *Relay) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc(WebSocketPath, relay.ServeWS)
	mux.HandleFunc("/test", TestPageHandler)
	return mux
}
