// Package ws implements the WebSocket binding of the transport layer using
// gorilla/websocket.
//
// The acceptor runs a plain net/http server and upgrades requests on
// DefaultPath (or the path of the endpoint URL) to WebSocket connections.
// Every WebSocket message carries exactly one frame, so no additional framing
// is applied. Frames are written as binary messages; text messages sent by
// other peers are accepted as well.
//
// Key Components:
//
//   - Conn: the raw socket behind the adapters, it serializes writes and
//     reports the disconnect of the peer once
//
//   - serverTransport: net/http based implementation of transport.IServerTransport
//
//   - clientTransport: dialer based implementation of transport.IClientTransport
package ws
