package server

import (
	"context"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/engine"
	"github.com/ValentinKolb/asyncsock/rpc/serializer"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"github.com/ValentinKolb/asyncsock/rpc/transport/pipe"
	"github.com/ValentinKolb/asyncsock/rpc/transport/tcp"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

const testTimeout = 2 * time.Second

// startServer runs Serve in the background and waits until it listens
func startServer(t *testing.T, config common.ServerConfig, tr transport.IServerTransport) *RPCServer {
	t.Helper()
	s, err := NewRPCServer(config, tr, serializer.NewJSONSerializer(), engine.ConfigFromServer(config))
	require.NoError(t, err)

	require.NoError(t, s.Engine().OnRequest("echo", func(ctx context.Context, req *engine.Request) (any, error) {
		return req.Content, nil
	}))

	served := make(chan error, 1)
	go func() { served <- s.Serve() }()
	require.Eventually(t, func() bool { return s.Addr() != nil }, testTimeout, 5*time.Millisecond)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
		select {
		case err := <-served:
			require.NoError(t, err)
		case <-time.After(testTimeout):
			t.Fatal("Serve did not return after Close")
		}
	})
	return s
}

func dialEngine(t *testing.T, ct transport.IClientTransport, config common.ClientConfig) *engine.Engine {
	t.Helper()
	adapter, err := ct.Connect(config)
	require.NoError(t, err)
	e, err := engine.New(engine.ConfigFromClient(config), serializer.NewJSONSerializer(), adapter)
	require.NoError(t, err)
	t.Cleanup(func() {
		e.Close()
		adapter.Close()
	})
	return e
}

func TestServeOverPipe(t *testing.T) {
	tr := pipe.NewTransport()
	s := startServer(t, common.ServerConfig{}, tr)

	client := dialEngine(t, tr, common.ClientConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	got, err := engine.Call[string](ctx, client, "echo", "hello")
	require.NoError(t, err)
	require.Equal(t, "hello", got)

	require.Len(t, s.Engine().Sockets(), 1)
}

func TestServeOverTCP(t *testing.T) {
	s := startServer(t, common.ServerConfig{
		Transport:     common.ServerTransportConfig{Endpoint: "127.0.0.1:0"},
		TimeoutSecond: 5,
	}, tcp.NewTCPServerTransport())

	ct := tcp.NewTCPClientTransport()
	config := common.ClientConfig{
		Transport:     common.ClientTransportConfig{Endpoint: s.Addr().String()},
		TimeoutSecond: 5,
	}
	first := dialEngine(t, ct, config)
	second := dialEngine(t, ct, config)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	for i, c := range []*engine.Engine{first, second} {
		got, err := engine.Call[int](ctx, c, "echo", i)
		require.NoError(t, err)
		require.Equal(t, i, got)
	}

	require.Eventually(t, func() bool { return len(s.Engine().Sockets()) == 2 }, testTimeout, 5*time.Millisecond)
}

func TestServerRequestsClient(t *testing.T) {
	tr := pipe.NewTransport()
	s := startServer(t, common.ServerConfig{}, tr)

	client := dialEngine(t, tr, common.ClientConfig{})
	require.NoError(t, client.OnRequest("whoami", func(ctx context.Context, req *engine.Request) (any, error) {
		return "client", nil
	}))

	var sockets []string
	require.Eventually(t, func() bool {
		sockets = s.Engine().Sockets()
		return len(sockets) == 1
	}, testTimeout, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	got, err := engine.Call[string](ctx, s.Engine(), "whoami", nil, engine.WithSocketID(sockets[0]))
	require.NoError(t, err)
	require.Equal(t, "client", got)

	// without a socket id the server engine has no default adapter
	_, err = s.Engine().Request("whoami", nil)
	require.ErrorIs(t, err, common.ErrNoAdapter)
}

func TestClientDisconnectDetachesSocket(t *testing.T) {
	tr := pipe.NewTransport()
	s := startServer(t, common.ServerConfig{}, tr)

	adapter, err := tr.Connect(common.ClientConfig{})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(s.Engine().Sockets()) == 1 }, testTimeout, 5*time.Millisecond)

	require.NoError(t, adapter.Close())
	require.Eventually(t, func() bool { return len(s.Engine().Sockets()) == 0 }, testTimeout, 5*time.Millisecond)
}

func TestServeTwice(t *testing.T) {
	tr := pipe.NewTransport()
	s := startServer(t, common.ServerConfig{}, tr)
	require.Error(t, s.Serve())
}

func TestNewRPCServerValidation(t *testing.T) {
	_, err := NewRPCServer(common.ServerConfig{}, nil, serializer.NewJSONSerializer(), engine.Config{})
	require.Error(t, err)

	_, err = NewRPCServer(common.ServerConfig{}, pipe.NewTransport(), nil, engine.Config{})
	require.Error(t, err)
}
