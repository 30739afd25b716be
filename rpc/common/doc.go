// Package common provides core data structures and utilities shared across
// the asyncsock request/response system. It defines the wire envelope,
// the error model, configuration structures, logging and metric names used
// by the other packages.
//
// The package focuses on:
//   - Envelope definition for requests and responses over a socket
//   - Error descriptors that carry message, stack and status code to the peer
//   - Configuration structures for the acceptor and initiator roles
//   - Custom logging implementation integrated with Dragonboat's logger facade
//
// Key Components:
//
//   - Envelope: the unit exchanged over the wire. A protocol marker (the
//     "__async" field) discriminates protocol frames from unrelated traffic
//     sharing the same socket; the correlation ID links a response to its
//     request.
//
//   - ErrorDescriptor / RemoteError: the serialized and the rebuilt form of a
//     failure. A failed handler is always reported the same way, regardless of
//     whether it returned an error, panicked, rejected a returned future or
//     reported the error through its completion callback.
//
//   - ServerConfig / ClientConfig: configuration of both roles including the
//     transport settings.
//
//   - Logger: zerolog backed implementation of Dragonboat's ILogger, installed
//     with InitLoggers.
package common
