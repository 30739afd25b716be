package quic

import (
	"errors"
	"github.com/quic-go/quic-go"
	"io"
	"net"
)

const (
	// closeCodeNormal is sent when a peer closes its connection on purpose
	closeCodeNormal quic.ApplicationErrorCode = 0
	// closeCodeProtocol is sent when the peer did not speak the protocol
	closeCodeProtocol quic.ApplicationErrorCode = 1
)

// preamble is written by the initiator right after opening the stream. QUIC
// streams only become visible to the acceptor once data was sent on them.
var preamble = []byte{'a', 's', 'k', 1}

// streamConn exposes one bidirectional stream of a QUIC connection as
// net.Conn so it can be framed by the base transport
type streamConn struct {
	quic.Stream
	conn quic.Connection
}

var _ net.Conn = (*streamConn)(nil)

func newStreamConn(conn quic.Connection, stream quic.Stream) *streamConn {
	return &streamConn{Stream: stream, conn: conn}
}

func (c *streamConn) Read(b []byte) (int, error) {
	n, err := c.Stream.Read(b)

	// an orderly close of the peer is reported like EOF on a stream socket
	var appErr *quic.ApplicationError
	if errors.As(err, &appErr) && appErr.ErrorCode == closeCodeNormal {
		err = io.EOF
	}
	return n, err
}

func (c *streamConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *streamConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the stream and the connection carrying it
func (c *streamConn) Close() error {
	c.Stream.CancelRead(0)
	_ = c.Stream.Close()
	return c.conn.CloseWithError(closeCodeNormal, "closed")
}
