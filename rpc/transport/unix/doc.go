// Package unix implements the transport binding for Unix domain sockets. It
// provides optimized communication for processes running on the same machine.
//
// This package extends the base transport layer with Unix socket-specific
// connectors while inheriting framing and disconnect handling from the base
// package. Stale socket files at the endpoint path are removed before
// listening.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners and accepts connections
package unix
