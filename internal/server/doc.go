// Package server is the WebSocket transport of the relay.
//
// A Relay upgrades HTTP requests, wraps each socket in a Client and hands the
// client to a chat.Hub. Every Client runs two goroutines: the read pump feeds
// inbound frames to the hub one at a time, and the write pump drains the
// client's bounded send queue onto the socket, one JSON object per frame.
// The hub never blocks on a socket; a client whose queue overflows closes
// itself and its read pump reports the disconnect.
package server
