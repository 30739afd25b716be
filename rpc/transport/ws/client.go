package ws

import (
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"github.com/gorilla/websocket"
	"time"
)

// NewWSClientTransport creates a new WebSocket client transport
func NewWSClientTransport() transport.IClientTransport {
	return &clientTransport{}
}

type clientTransport struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) (transport.Adapter, error) {
	u, err := parseEndpoint(config.Transport.Endpoint)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(config.TimeoutSecond) * time.Second
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
		ReadBufferSize:   config.Transport.ReadBufferSize,
		WriteBufferSize:  config.Transport.WriteBufferSize,
	}

	ws, resp, err := dialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", u, err)
	}

	Logger.Infof("Connected to %s using ws transport", u)

	return newAdapter(newConn(ws, config.Transport.MaxFrameSize, timeout)), nil
}
