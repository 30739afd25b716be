// Package rpc provides asynchronous request/response messaging on top of
// bidirectional message sockets. Both ends of a connection can send
// requests and answer them, responses are correlated by request id and
// may arrive in any order.
//
// The package is organized into several subpackages:
//
//   - common: The Envelope wire model, error descriptors and status codes,
//     configuration structures, logging and metric names.
//
//   - engine: The correlation engine. It sends requests, settles their
//     futures when responses arrive and dispatches inbound requests to
//     registered handlers.
//
//   - transport: The socket adapter abstraction with pluggable
//     implementations (TCP, Unix sockets, QUIC and an in-memory pipe).
//
//   - serializer: Envelope encoding with multiple format options (JSON,
//     GOB, Binary, Protobuf wire format).
//
//   - client: The initiator role, one connection with its own engine.
//
//   - server: The acceptor role, one engine shared by all accepted
//     connections.
package rpc
