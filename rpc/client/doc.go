// Package client implements the initiator role of the RPC system. Dial opens
// one connection through a client transport and wraps it in an
// engine.Engine that uses the connection as its default adapter.
//
// The client is symmetric to the server: besides sending requests with
// Request, Invoke or engine.Call it can register handlers with OnRequest and
// answer requests the server sends to it.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Transport:     common.ClientTransportConfig{Endpoint: "localhost:8080"},
//	  TimeoutSecond: 5,
//	}
//
//	c, err := client.Dial(
//	  config,
//	  tcp.NewTCPClientTransport(),
//	  serializer.NewBinarySerializer(),
//	  engine.ConfigFromClient(config),
//	)
//	if err != nil {
//	  log.Fatal(err)
//	}
//	defer c.Close()
//
//	pong, err := engine.Call[string](ctx, c.Engine, "ping", nil)
//
// Thread Safety:
//
//	The client is thread-safe and can be used concurrently from multiple
//	goroutines. Responses are correlated by request id, so concurrent
//	requests may complete in any order.
package client
