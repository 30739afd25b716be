package transport

import (
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"io"
	"sync/atomic"
)

// SendFunc writes one frame to a raw socket
type SendFunc[S comparable] func(socket S, frame []byte) error

// OnMessageFunc subscribes a sink to the frames of a raw socket
type OnMessageFunc[S comparable] func(socket S, sink MessageSink)

// OnDisconnectFunc subscribes a hook to the disconnect of a raw socket
type OnDisconnectFunc[S comparable] func(socket S, hook DisconnectHook)

// NewAdapterFactory builds adapters for sockets of type S from plain functions
// without the need to implement the Adapter interface by hand. onDisconnect
// may be nil for sockets that never disconnect.
//
// Close of the returned adapters closes the socket if it implements io.Closer
// and is a no-op otherwise.
//
// Example:
//
//	newAdapter := transport.NewAdapterFactory(
//	  func(c *websocket.Conn, frame []byte) error { return c.WriteMessage(websocket.BinaryMessage, frame) },
//	  func(c *websocket.Conn, sink transport.MessageSink) { go readLoop(c, sink) },
//	  nil,
//	)
//	adapter := newAdapter(conn)
func NewAdapterFactory[S comparable](send SendFunc[S], onMessage OnMessageFunc[S], onDisconnect OnDisconnectFunc[S]) func(S) Adapter {
	return func(socket S) Adapter {
		return &factoryAdapter[S]{
			socket:       socket,
			send:         send,
			onMessage:    onMessage,
			onDisconnect: onDisconnect,
		}
	}
}

// factoryAdapter implements Adapter by delegating to the functions of the factory
type factoryAdapter[S comparable] struct {
	socket       S
	send         SendFunc[S]
	onMessage    OnMessageFunc[S]
	onDisconnect OnDisconnectFunc[S]
	sinkBound    atomic.Bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.Adapter)
// --------------------------------------------------------------------------

func (a *factoryAdapter[S]) Send(frame []byte) error {
	return a.send(a.socket, frame)
}

func (a *factoryAdapter[S]) OnMessage(sink MessageSink) error {
	if !a.sinkBound.CompareAndSwap(false, true) {
		return common.ErrSinkAlreadyBound
	}
	a.onMessage(a.socket, sink)
	return nil
}

func (a *factoryAdapter[S]) OnDisconnect(hook DisconnectHook) {
	if a.onDisconnect != nil {
		a.onDisconnect(a.socket, hook)
	}
}

func (a *factoryAdapter[S]) Socket() any {
	return a.socket
}

func (a *factoryAdapter[S]) Close() error {
	if closer, ok := any(a.socket).(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
