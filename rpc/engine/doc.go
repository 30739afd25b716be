// Package engine implements the correlation engine that turns message
// oriented sockets into a request/response channel.
//
// An Engine owns three tables:
//
//   - pending requests, keyed by correlation id. Request stores the entry
//     before the envelope is sent and the matching response removes it and
//     settles the Future. Responses without an entry are dropped.
//
//   - handlers, one per request type. A handler is either a HandlerFunc
//     (returns the result, an error or an Awaitable) or a CallbackHandlerFunc
//     (settles through a Completion). Returned errors, panics, rejected
//     Awaitables and errors passed to the Completion all end up as the same
//     failure response.
//
//   - attached sockets, keyed by a generated socket id. AddSocket binds the
//     engine as message sink of an adapter; a package wide side table makes
//     sure one raw socket is never attached to two engines.
//
// Requests of an unknown type are answered with status 404. Frames that are
// not protocol envelopes are ignored, so a socket can be shared with other
// traffic. When a peer disconnects its pending requests fail with
// common.ErrPeerDisconnected (see Config.KeepPendingOnDisconnect).
//
// Usage:
//
//	server, _ := engine.New(engine.Config{Name: "server"}, serializer.NewJSONSerializer(), nil)
//	_ = server.OnRequest("echo", func(ctx context.Context, req *engine.Request) (any, error) {
//	  return req.Content, nil
//	})
//	_, _ = server.AddSocket(peerAdapter)
//
//	client, _ := engine.New(engine.Config{Name: "client"}, serializer.NewJSONSerializer(), adapter)
//	out, err := engine.Call[map[string]int](ctx, client, "echo", map[string]int{"n": 1})
//
// Thread Safety:
//
//	All methods of Engine are safe for concurrent use. Every inbound request
//	runs its handler on its own goroutine; Config.MaxConcurrentHandlers bounds
//	how many run at the same time.
package engine
