// Package transport defines the contract between the correlation engine and
// the concrete socket technologies it runs on.
//
// Key Components:
//
//   - Adapter: wraps one raw socket and exposes Send, OnMessage, OnDisconnect,
//     Socket and Close. The engine never touches a socket directly.
//
//   - NewAdapterFactory: builds adapters from two or three plain functions
//     (send, subscribe to messages, optionally subscribe to disconnects).
//
//   - IServerTransport / IClientTransport: acceptor and initiator side of a
//     binding. Server transports hand every accepted peer to an AcceptFunc,
//     client transports return the adapter of the established connection.
//
// Bindings live in the sub packages: base (length prefixed frames over any
// stream), tcp, unix, quic, ws (one frame per WebSocket message) and pipe
// (in memory).
package transport
