// Package tcp implements the TCP binding of the transport layer. It provides
// concrete implementations of the base package's connector interfaces.
//
// All framing, reading and disconnect handling is inherited from the base
// package. This package only dials, listens and tunes connections (no delay,
// socket buffers, keep-alive and linger) according to common.TCPConf and
// common.SocketConf.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
package tcp
