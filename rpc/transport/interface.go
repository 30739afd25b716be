package transport

import (
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"net"
)

// --------------------------------------------------------------------------
// Adapter
// --------------------------------------------------------------------------

// MessageSink receives every frame read from a socket. It is called from the
// reading goroutine of the adapter, one frame at a time and in arrival order.
type MessageSink func(frame []byte)

// DisconnectHook is called once when the underlying socket goes away. err is
// the reason (io.EOF for an orderly shutdown by the peer, common.ErrTransportClosed
// when the socket was closed locally).
type DisconnectHook func(err error)

// Adapter normalizes one raw socket into a uniform send/receive/disconnect
// interface. One adapter always wraps exactly one peer.
type Adapter interface {
	// Send writes one frame to the peer. Errors are returned to the caller
	// and are never retried by the adapter.
	Send(frame []byte) error

	// OnMessage registers the single sink for inbound frames. A second
	// registration returns common.ErrSinkAlreadyBound.
	OnMessage(sink MessageSink) error

	// OnDisconnect registers a hook that fires once when the socket is gone.
	// Sources that never disconnect may ignore the hook.
	OnDisconnect(hook DisconnectHook)

	// Socket returns the raw socket. It is used as the identity of the
	// connection and must therefore be a comparable value (usually a pointer).
	Socket() any

	// Close closes the underlying socket.
	Close() error
}

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// AcceptFunc is called by a server transport for every accepted peer
type AcceptFunc func(adapter Adapter)

// IServerTransport is the interface for the acceptor side of a transport binding
type IServerTransport interface {
	// RegisterAcceptor registers the function that receives accepted peers.
	// It must be called before Listen.
	RegisterAcceptor(acceptor AcceptFunc)
	// Listen starts accepting peers. It blocks until the transport is closed.
	Listen(config common.ServerConfig) error
	// Addr returns the address the transport listens on, nil while not listening
	Addr() net.Addr
	// Close stops accepting new peers. Already accepted peers stay open.
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IClientTransport is the interface for the initiator side of a transport binding
type IClientTransport interface {
	// Connect establishes a connection to the configured endpoint and
	// returns the adapter for it
	Connect(config common.ClientConfig) (Adapter, error)
}
