package pipe

import (
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"io"
	"sync"
)

// DefaultBufferSize is the number of frames that can be queued per direction
// before Send blocks
const DefaultBufferSize = 1024

// Conn is one end of an in-memory pipe. It is the raw socket behind the
// adapters returned by New.
type Conn struct {
	in   chan []byte
	peer *Conn
	link *link

	// guarded by link.mu
	hooks []transport.DisconnectHook
}

// link is the state shared by both ends of a pipe
type link struct {
	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// newAdapter builds the adapters of both pipe ends
var newAdapter = transport.NewAdapterFactory(send, onMessage, onDisconnect)

// New creates a connected pair of adapters. Frames sent on one end are
// delivered to the sink of the other end asynchronously and in order.
// Closing either end disconnects both.
func New() (transport.Adapter, transport.Adapter) {
	return NewWithBuffer(DefaultBufferSize)
}

// NewWithBuffer creates a connected pair with the given queue size per direction
func NewWithBuffer(bufferSize int) (transport.Adapter, transport.Adapter) {
	l := &link{closeCh: make(chan struct{})}
	a := &Conn{in: make(chan []byte, bufferSize), link: l}
	b := &Conn{in: make(chan []byte, bufferSize), link: l}
	a.peer, b.peer = b, a
	return newAdapter(a), newAdapter(b)
}

// Close disconnects both ends. The local end reports common.ErrTransportClosed
// to its disconnect hooks, the peer reports io.EOF.
func (c *Conn) Close() error {
	l := c.link
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.closeCh)
	local, remote := c.hooks, c.peer.hooks
	c.hooks, c.peer.hooks = nil, nil
	l.mu.Unlock()

	// wait for senders that are blocked on a full queue to give up
	l.wg.Wait()

	for _, hook := range local {
		hook(common.ErrTransportClosed)
	}
	for _, hook := range remote {
		hook(io.EOF)
	}
	return nil
}

// --------------------------------------------------------------------------
// Adapter Factory functions
// --------------------------------------------------------------------------

func send(c *Conn, frame []byte) error {
	l := c.link
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return common.ErrTransportClosed
	}
	l.wg.Add(1)
	defer l.wg.Done()
	l.mu.Unlock()

	// the caller may reuse its buffer
	cp := make([]byte, len(frame))
	copy(cp, frame)

	select {
	case c.peer.in <- cp:
		return nil
	case <-l.closeCh:
		return common.ErrTransportClosed
	}
}

func onMessage(c *Conn, sink transport.MessageSink) {
	go func() {
		for {
			select {
			case frame := <-c.in:
				sink(frame)
			case <-c.link.closeCh:
				return
			}
		}
	}()
}

func onDisconnect(c *Conn, hook transport.DisconnectHook) {
	l := c.link
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		hook(common.ErrTransportClosed)
		return
	}
	c.hooks = append(c.hooks, hook)
	l.mu.Unlock()
}
