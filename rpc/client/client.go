package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/engine"
	"github.com/ValentinKolb/asyncsock/rpc/serializer"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"sync/atomic"
)

var (
	Logger = logger.GetLogger(common.LoggerClient)
)

// RPCClient is the initiator role: one connection to a server with an engine
// that uses this connection as its default adapter. All engine operations
// (Request, OnRequest, ...) are available directly on the client.
type RPCClient struct {
	*engine.Engine
	config  common.ClientConfig
	adapter transport.Adapter
	closed  atomic.Bool
}

// Dial connects to the endpoint of the config and returns a client whose
// engine sends over the new connection. A lost connection is not
// re-established, Dial again to reconnect.
//
// Usage:
//
//	c, err := client.Dial(
//		config,
//		tcp.NewTCPClientTransport(),
//		serializer.NewJSONSerializer(),
//		engine.ConfigFromClient(config),
//	)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	var out string
//	err = c.Invoke(ctx, "echo", "hello", &out)
func Dial(
	config common.ClientConfig,
	transport transport.IClientTransport,
	serializer serializer.IRPCSerializer,
	engineCfg engine.Config,
) (*RPCClient, error) {
	if transport == nil {
		return nil, fmt.Errorf("client: transport is nil")
	}
	if serializer == nil {
		return nil, fmt.Errorf("client: serializer is nil")
	}

	conn, err := transport.Connect(config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", config.Transport.Endpoint, err)
	}

	e, err := engine.New(engineCfg, serializer, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	Logger.Debugf("Connected to %s", config.Transport.Endpoint)

	return &RPCClient{
		Engine:  e,
		config:  config,
		adapter: conn,
	}, nil
}

// Adapter returns the connection of the client
func (c *RPCClient) Adapter() transport.Adapter {
	return c.adapter
}

// Invoke sends a request, waits for its response and decodes the response
// content into out (which may be nil). A failure reported by the server is
// returned as *common.RemoteError.
func (c *RPCClient) Invoke(ctx context.Context, reqType string, payload any, out any) error {
	f, err := c.Request(reqType, payload)
	if err != nil {
		return err
	}
	res, err := f.Await(ctx)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := res.Decode(out); err != nil {
		return fmt.Errorf("failed to decode %q response: %w", reqType, err)
	}
	return nil
}

// Close closes the engine and the connection. Pending requests fail with
// common.ErrEngineClosed.
func (c *RPCClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	engineErr := c.Engine.Close()
	if err := c.adapter.Close(); err != nil {
		return err
	}
	return engineErr
}
