// Package protocol implements the JSON wire format of the chat relay.
//
// Inbound frames are decoded into a closed set of typed events (Join,
// ChatMessage, Typing) and validated per variant. Outbound events share a
// single frame shape for every kind so that clients can dispatch on "type".
package protocol
