// Package server implements the acceptor role of the RPC system. An RPCServer
// listens on a server transport and attaches every accepted connection to
// one shared engine.Engine, so handlers registered on that engine answer the
// requests of all peers and the server can send requests to any attached
// peer.
//
// Key Components:
//
//   - NewRPCServer: Factory function creating a server with the specified
//     transport, serializer and engine configuration.
//
//   - RPCServer.Engine: The shared engine used to register handlers and to
//     send requests to a specific peer with engine.WithSocketID.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	s, err := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	  engine.ConfigFromServer(config),
//	)
//	if err != nil {
//	  log.Fatal(err)
//	}
//
//	_ = s.Engine().OnRequest("ping", func(ctx context.Context, req *engine.Request) (any, error) {
//	  return "pong", nil
//	})
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	The server is thread-safe. Every accepted connection is served by its own
//	reading goroutine and handlers run concurrently. Serve must be called only
//	once.
package server
