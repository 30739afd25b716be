package ws

import (
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
	"time"
)

// startServer runs an echo server on a random port and returns the transport
// together with the channels of accepted adapters and the Listen result
func startServer(t *testing.T, config common.ServerConfig) (transport.IServerTransport, chan transport.Adapter, chan error) {
	t.Helper()
	srv := NewWSServerTransport()

	accepted := make(chan transport.Adapter, 1)
	srv.RegisterAcceptor(func(a transport.Adapter) {
		// echo every frame with a prefix
		_ = a.OnMessage(func(frame []byte) {
			_ = a.Send(append([]byte("re:"), frame...))
		})
		accepted <- a
	})

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- srv.Listen(config)
	}()
	require.Eventually(t, func() bool { return srv.Addr() != nil }, 2*time.Second, 10*time.Millisecond)
	return srv, accepted, listenErr
}

func TestWSTransportExchange(t *testing.T) {
	for _, level := range []string{"info", "debug"} {
		t.Run(level, func(t *testing.T) {
			srv, accepted, listenErr := startServer(t, common.ServerConfig{
				Transport:     common.ServerTransportConfig{Endpoint: "127.0.0.1:0/rpc"},
				TimeoutSecond: 5,
				LogLevel:      level,
			})

			client, err := NewWSClientTransport().Connect(common.ClientConfig{
				Transport:     common.ClientTransportConfig{Endpoint: srv.Addr().String() + "/rpc"},
				TimeoutSecond: 5,
			})
			require.NoError(t, err)
			require.IsType(t, &Conn{}, client.Socket())

			received := make(chan string, 1)
			require.NoError(t, client.OnMessage(func(frame []byte) { received <- string(frame) }))
			require.NoError(t, client.Send([]byte("ping")))

			select {
			case msg := <-received:
				require.Equal(t, "re:ping", msg)
			case <-time.After(2 * time.Second):
				t.Fatal("no reply received")
			}

			// the server side sees the client going away
			serverSide := <-accepted
			disconnected := make(chan error, 1)
			serverSide.OnDisconnect(func(err error) { disconnected <- err })
			require.NoError(t, client.Close())

			select {
			case err := <-disconnected:
				require.ErrorIs(t, err, io.EOF)
			case <-time.After(2 * time.Second):
				t.Fatal("disconnect not reported")
			}

			// a closed adapter refuses to send
			require.ErrorIs(t, client.Send([]byte("late")), common.ErrTransportClosed)

			require.NoError(t, srv.Close())
			require.NoError(t, <-listenErr)
			require.Nil(t, srv.Addr())
		})
	}
}

func TestWSLocalCloseReportsTransportClosed(t *testing.T) {
	srv, _, _ := startServer(t, common.ServerConfig{
		Transport: common.ServerTransportConfig{Endpoint: "127.0.0.1:0"},
	})
	t.Cleanup(func() { _ = srv.Close() })

	client, err := NewWSClientTransport().Connect(common.ClientConfig{
		Transport: common.ClientTransportConfig{Endpoint: "ws://" + srv.Addr().String()},
	})
	require.NoError(t, err)
	require.NoError(t, client.OnMessage(func([]byte) {}))

	disconnected := make(chan error, 2)
	client.OnDisconnect(func(err error) { disconnected <- err })
	require.NoError(t, client.Close())
	require.ErrorIs(t, <-disconnected, common.ErrTransportClosed)

	// hooks registered after the disconnect fire immediately with the same reason
	client.OnDisconnect(func(err error) { disconnected <- err })
	require.ErrorIs(t, <-disconnected, common.ErrTransportClosed)

	// only one disconnect per connection
	select {
	case err := <-disconnected:
		t.Fatalf("unexpected second disconnect: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWSOversizedFrameDisconnects(t *testing.T) {
	srv, accepted, _ := startServer(t, common.ServerConfig{
		Transport: common.ServerTransportConfig{Endpoint: "127.0.0.1:0", MaxFrameSize: 16},
	})
	t.Cleanup(func() { _ = srv.Close() })

	client, err := NewWSClientTransport().Connect(common.ClientConfig{
		Transport: common.ClientTransportConfig{Endpoint: srv.Addr().String()},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	serverSide := <-accepted
	disconnected := make(chan error, 1)
	serverSide.OnDisconnect(func(err error) { disconnected <- err })

	require.NoError(t, client.Send(make([]byte, 64)))
	select {
	case err := <-disconnected:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect not reported")
	}
}

func TestWSConnectFailure(t *testing.T) {
	_, err := NewWSClientTransport().Connect(common.ClientConfig{})
	require.Error(t, err)

	_, err = NewWSClientTransport().Connect(common.ClientConfig{
		Transport: common.ClientTransportConfig{Endpoint: "http://127.0.0.1:1"},
	})
	require.Error(t, err)

	// nothing listens on port 1
	_, err = NewWSClientTransport().Connect(common.ClientConfig{
		Transport: common.ClientTransportConfig{Endpoint: "127.0.0.1:1"},
	})
	require.Error(t, err)
}

func TestParseEndpoint(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:8080":           "ws://127.0.0.1:8080/",
		"127.0.0.1:8080/rpc":       "ws://127.0.0.1:8080/rpc",
		"wss://example.com/socket": "wss://example.com/socket",
	}
	for endpoint, want := range cases {
		u, err := parseEndpoint(endpoint)
		require.NoError(t, err)
		require.Equal(t, want, u.String())
	}

	_, err := parseEndpoint("")
	require.Error(t, err)
	_, err = parseEndpoint("tcp://127.0.0.1:8080")
	require.Error(t, err)
}
