package quic

import (
	"bytes"
	"context"
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"github.com/ValentinKolb/asyncsock/rpc/transport/base"
	"github.com/quic-go/quic-go"
	"io"
	"net"
	"sync"
	"time"
)

// handshakeTimeout bounds the time between connection and preamble
const handshakeTimeout = 10 * time.Second

// serverConnector implements the IServerConnector interface for QUIC
type serverConnector struct {
	opts options
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "quic"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	tlsConf, err := c.opts.serverTLSConfig(config.Transport.TLSConf)
	if err != nil {
		return nil, err
	}

	ln, err := quic.ListenAddr(config.Transport.Endpoint, tlsConf, c.opts.quicConf)
	if err != nil {
		return nil, fmt.Errorf("failed to create QUIC listener: %w", err)
	}

	return newStreamListener(ln), nil
}

func (c *serverConnector) UpgradeConnection(net.Conn, common.ServerConfig) error {
	return nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewQUICServerTransport creates a new QUIC server transport
func NewQUICServerTransport(opts ...Option) transport.IServerTransport {
	return base.NewBaseServerTransport(&serverConnector{opts: buildOptions(opts)})
}

// --------------------------------------------------------------------------
// Stream Listener
// --------------------------------------------------------------------------

// streamListener implements net.Listener on top of a QUIC listener. Every
// accepted connection yields one stream once the initiator sent the preamble.
// Handshakes run concurrently so a slow peer does not block others.
type streamListener struct {
	ln     *quic.Listener
	ctx    context.Context
	cancel context.CancelFunc
	conns  chan net.Conn

	once sync.Once
}

func newStreamListener(ln *quic.Listener) *streamListener {
	ctx, cancel := context.WithCancel(context.Background())
	l := &streamListener{
		ln:     ln,
		ctx:    ctx,
		cancel: cancel,
		conns:  make(chan net.Conn),
	}
	go l.acceptLoop()
	return l
}

func (l *streamListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.ctx.Done():
		return nil, net.ErrClosed
	}
}

func (l *streamListener) Close() error {
	var err error
	l.once.Do(func() {
		l.cancel()
		err = l.ln.Close()
	})
	return err
}

func (l *streamListener) Addr() net.Addr {
	return l.ln.Addr()
}

func (l *streamListener) acceptLoop() {
	for {
		conn, err := l.ln.Accept(l.ctx)
		if err != nil {
			if l.ctx.Err() == nil {
				base.Logger.Errorf("QUIC accept error: %v", err)
				_ = l.Close()
			}
			return
		}
		go l.handshake(conn)
	}
}

// handshake waits for the stream of a new connection and checks its preamble
func (l *streamListener) handshake(conn quic.Connection) {
	ctx, cancel := context.WithTimeout(l.ctx, handshakeTimeout)
	defer cancel()

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		base.Logger.Warningf("No stream opened by %s: %v", conn.RemoteAddr(), err)
		_ = conn.CloseWithError(closeCodeProtocol, "no stream")
		return
	}

	_ = stream.SetReadDeadline(time.Now().Add(handshakeTimeout))
	got := make([]byte, len(preamble))
	if _, err := io.ReadFull(stream, got); err != nil || !bytes.Equal(got, preamble) {
		base.Logger.Warningf("Invalid preamble from %s", conn.RemoteAddr())
		_ = conn.CloseWithError(closeCodeProtocol, "invalid preamble")
		return
	}
	_ = stream.SetReadDeadline(time.Time{})

	select {
	case l.conns <- newStreamConn(conn, stream):
	case <-l.ctx.Done():
		_ = conn.CloseWithError(closeCodeNormal, "listener closed")
	}
}
