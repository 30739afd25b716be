package pipe

import (
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"net"
	"sync"
)

// Addr is the net.Addr of an in-memory transport
type Addr string

func (a Addr) Network() string { return "pipe" }
func (a Addr) String() string  { return string(a) }

// Transport is an in-memory server and client transport. Connect creates a
// pipe and hands its other end to the acceptor registered on the same
// Transport, which allows running both roles in one process.
type Transport struct {
	mu        sync.Mutex
	acceptor  transport.AcceptFunc
	addr      net.Addr
	listening bool
	closed    bool
	done      chan struct{}
}

var (
	_ transport.IServerTransport = (*Transport)(nil)
	_ transport.IClientTransport = (*Transport)(nil)
)

// NewTransport creates a new in-memory transport
func NewTransport() *Transport {
	return &Transport{done: make(chan struct{})}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *Transport) RegisterAcceptor(acceptor transport.AcceptFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.acceptor = acceptor
}

func (t *Transport) Listen(config common.ServerConfig) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return common.ErrTransportClosed
	}
	endpoint := config.Transport.Endpoint
	if endpoint == "" {
		endpoint = "pipe"
	}
	t.addr = Addr(endpoint)
	t.listening = true
	t.mu.Unlock()

	<-t.done
	return nil
}

func (t *Transport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.listening || t.closed {
		return nil
	}
	return t.addr
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.done)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *Transport) Connect(common.ClientConfig) (transport.Adapter, error) {
	t.mu.Lock()
	acceptor, ready := t.acceptor, t.listening && !t.closed
	t.mu.Unlock()

	if !ready || acceptor == nil {
		return nil, common.ErrTransportNotReady
	}

	client, server := New()
	acceptor(server)
	return client, nil
}
