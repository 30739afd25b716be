// Package base provides the foundation of all stream based transport
// bindings (tcp, unix, quic). It implements everything that does not depend
// on the concrete network protocol and is extended with protocol-specific
// connectors.
//
// Key Components:
//
//   - streamAdapter: transport.Adapter over any io.ReadWriteCloser. Frames are
//     length prefixed (4 byte big endian length followed by the data). One
//     reader goroutine per stream is started when the message sink is
//     registered; writes are serialized with a mutex and optionally bounded by
//     a write deadline. Disconnect hooks fire exactly once, on EOF, on a read
//     error or on Close.
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     (dial, listen, connection tuning) that allow extending the base transport
//     with different network protocols.
//
//   - clientTransport: dials one connection and returns its adapter.
//
//   - serverTransport: accepts connections in a loop, upgrades them and hands
//     an adapter per peer to the registered acceptor.
//
// Thread Safety:
//
//	Send may be called from any goroutine. The message sink is only ever
//	called from the reader goroutine of its stream, so frames of one peer
//	are delivered in order.
package base
