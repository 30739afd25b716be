package ws

import (
	"errors"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"github.com/gorilla/websocket"
	"io"
	"sync"
	"time"
)

// closeGracePeriod bounds the time spent writing the close message
const closeGracePeriod = time.Second

// Conn is one WebSocket connection. It is the raw socket behind the adapters
// of this package.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	// gorilla allows only one concurrent writer
	writeMu sync.Mutex

	mu     sync.Mutex
	closed bool
	reason error
	hooks  []transport.DisconnectHook
}

// newAdapter builds the adapters of accepted and dialed connections
var newAdapter = transport.NewAdapterFactory(send, onMessage, onDisconnect)

func newConn(ws *websocket.Conn, maxFrameSize uint32, writeTimeout time.Duration) *Conn {
	if maxFrameSize > 0 {
		ws.SetReadLimit(int64(maxFrameSize))
	}
	return &Conn{ws: ws, writeTimeout: writeTimeout}
}

// Close sends a normal close message to the peer and closes the connection.
// The disconnect hooks receive common.ErrTransportClosed.
func (c *Conn) Close() error {
	if !c.disconnect(common.ErrTransportClosed) {
		return nil
	}
	c.writeMu.Lock()
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod),
	)
	c.writeMu.Unlock()
	return c.ws.Close()
}

// disconnect marks the connection as gone and fires the hooks. It reports
// false if the connection was already gone.
func (c *Conn) disconnect(reason error) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.closed = true
	c.reason = reason
	hooks := c.hooks
	c.hooks = nil
	c.mu.Unlock()

	for _, hook := range hooks {
		hook(reason)
	}
	return true
}

// readReason maps a read error to the reason reported to disconnect hooks
func readReason(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}

// --------------------------------------------------------------------------
// Adapter Factory functions
// --------------------------------------------------------------------------

func send(c *Conn, frame []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return common.ErrTransportClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, frame)
}

func onMessage(c *Conn, sink transport.MessageSink) {
	go func() {
		for {
			msgType, frame, err := c.ws.ReadMessage()
			if err != nil {
				if c.disconnect(readReason(err)) {
					Logger.Debugf("Connection to %s closed: %v", c.ws.RemoteAddr(), err)
				}
				_ = c.ws.Close()
				return
			}
			if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
				continue
			}
			sink(frame)
		}
	}()
}

func onDisconnect(c *Conn, hook transport.DisconnectHook) {
	c.mu.Lock()
	if c.closed {
		reason := c.reason
		c.mu.Unlock()
		hook(reason)
		return
	}
	c.hooks = append(c.hooks, hook)
	c.mu.Unlock()
}
