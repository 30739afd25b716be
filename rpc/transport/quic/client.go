package quic

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"github.com/ValentinKolb/asyncsock/rpc/transport/base"
	"github.com/quic-go/quic-go"
	"net"
	"time"
)

const defaultDialTimeout = 10 * time.Second

// clientConnector implements the IClientConnector interface for QUIC
type clientConnector struct {
	opts options
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "quic"
}

func (c *clientConnector) Connect(config common.ClientConfig) (net.Conn, error) {
	tlsConf, err := c.opts.clientTLSConfig(config.Transport.TLSConf)
	if err != nil {
		return nil, err
	}

	timeout := defaultDialTimeout
	if config.TimeoutSecond > 0 {
		timeout = time.Duration(config.TimeoutSecond) * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := quic.DialAddr(ctx, config.Transport.Endpoint, tlsConf, c.opts.quicConf)
	if err != nil {
		return nil, err
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(closeCodeNormal, "failed to open stream")
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	if _, err := stream.Write(preamble); err != nil {
		_ = conn.CloseWithError(closeCodeNormal, "failed to write preamble")
		return nil, fmt.Errorf("failed to write preamble: %w", err)
	}

	return newStreamConn(conn, stream), nil
}

func (c *clientConnector) UpgradeConnection(net.Conn, common.ClientConfig) error {
	return nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewQUICClientTransport creates a new QUIC client transport
func NewQUICClientTransport(opts ...Option) transport.IClientTransport {
	return base.NewBaseClientTransport(&clientConnector{opts: buildOptions(opts)})
}
