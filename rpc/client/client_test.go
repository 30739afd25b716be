package client

import (
	"context"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/engine"
	"github.com/ValentinKolb/asyncsock/rpc/serializer"
	"github.com/ValentinKolb/asyncsock/rpc/server"
	"github.com/ValentinKolb/asyncsock/rpc/transport/pipe"
	"github.com/stretchr/testify/require"
	"net/http"
	"sync"
	"testing"
	"time"
)

const testTimeout = 2 * time.Second

type greeting struct {
	Name string `json:"name"`
}

func startServer(t *testing.T, tr *pipe.Transport) *server.RPCServer {
	t.Helper()
	s, err := server.NewRPCServer(common.ServerConfig{}, tr, serializer.NewJSONSerializer(), engine.Config{Name: "server"})
	require.NoError(t, err)

	require.NoError(t, s.Engine().OnRequest("greet", func(ctx context.Context, req *engine.Request) (any, error) {
		var g greeting
		if err := req.Decode(&g); err != nil {
			return nil, common.WithStatusCode(err, http.StatusBadRequest)
		}
		return "hello " + g.Name, nil
	}))

	go func() { _ = s.Serve() }()
	require.Eventually(t, func() bool { return s.Addr() != nil }, testTimeout, 5*time.Millisecond)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

func TestInvoke(t *testing.T) {
	tr := pipe.NewTransport()
	startServer(t, tr)

	c, err := Dial(common.ClientConfig{}, tr, serializer.NewJSONSerializer(), engine.Config{Name: "client"})
	require.NoError(t, err)
	defer c.Close()

	var out string
	require.NoError(t, c.Invoke(testContext(t), "greet", greeting{Name: "bob"}, &out))
	require.Equal(t, "hello bob", out)

	// the result can be ignored
	require.NoError(t, c.Invoke(testContext(t), "greet", greeting{Name: "bob"}, nil))

	// failures of the server arrive as remote errors with their status
	err = c.Invoke(testContext(t), "greet", "not an object", &out)
	var remote *common.RemoteError
	require.ErrorAs(t, err, &remote)
	require.Equal(t, http.StatusBadRequest, remote.StatusCode())

	err = c.Invoke(testContext(t), "unknown", nil, nil)
	require.ErrorAs(t, err, &remote)
	require.Equal(t, http.StatusNotFound, remote.StatusCode())
}

func TestConcurrentInvoke(t *testing.T) {
	tr := pipe.NewTransport()
	startServer(t, tr)

	c, err := Dial(common.ClientConfig{}, tr, serializer.NewJSONSerializer(), engine.Config{})
	require.NoError(t, err)
	defer c.Close()

	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	results := make([]string, len(names))
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			errs[i] = c.Invoke(context.Background(), "greet", greeting{Name: name}, &results[i])
		}(i, name)
	}
	wg.Wait()

	for i, name := range names {
		require.NoError(t, errs[i])
		require.Equal(t, "hello "+name, results[i])
	}
}

func TestDialNotListening(t *testing.T) {
	_, err := Dial(common.ClientConfig{}, pipe.NewTransport(), serializer.NewJSONSerializer(), engine.Config{})
	require.ErrorIs(t, err, common.ErrTransportNotReady)
}

func TestDialValidation(t *testing.T) {
	_, err := Dial(common.ClientConfig{}, nil, serializer.NewJSONSerializer(), engine.Config{})
	require.Error(t, err)

	_, err = Dial(common.ClientConfig{}, pipe.NewTransport(), nil, engine.Config{})
	require.Error(t, err)
}

func TestCloseFailsPending(t *testing.T) {
	tr := pipe.NewTransport()
	s := startServer(t, tr)

	// a handler that never answers
	require.NoError(t, s.Engine().OnRequestCallback("hang", func(ctx context.Context, req *engine.Request, done engine.Completion) {}))

	c, err := Dial(common.ClientConfig{}, tr, serializer.NewJSONSerializer(), engine.Config{})
	require.NoError(t, err)

	f, err := c.Request("hang", nil)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = f.Await(testContext(t))
	require.ErrorIs(t, err, common.ErrEngineClosed)

	// the server notices the disconnect
	require.Eventually(t, func() bool { return len(s.Engine().Sockets()) == 0 }, testTimeout, 5*time.Millisecond)
}

func TestServerCallsClient(t *testing.T) {
	tr := pipe.NewTransport()
	s := startServer(t, tr)

	c, err := Dial(common.ClientConfig{}, tr, serializer.NewJSONSerializer(), engine.Config{})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.OnRequest("status", func(ctx context.Context, req *engine.Request) (any, error) {
		return map[string]bool{"ok": true}, nil
	}))

	sockets := s.Engine().Sockets()
	require.Len(t, sockets, 1)

	status, err := engine.Call[map[string]bool](testContext(t), s.Engine(), "status", nil, engine.WithSocketID(sockets[0]))
	require.NoError(t, err)
	require.True(t, status["ok"])
}
