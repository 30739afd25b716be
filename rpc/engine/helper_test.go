package engine

import (
	"context"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/serializer"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"github.com/ValentinKolb/asyncsock/rpc/transport/pipe"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

const testTimeout = 2 * time.Second

type counter struct {
	N int `json:"n"`
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

// newConnectedEngines connects a client engine (default adapter) and a
// server engine (attached socket) over an in-memory pipe
func newConnectedEngines(t *testing.T, s serializer.IRPCSerializer, clientCfg, serverCfg Config) (*Engine, *Engine) {
	t.Helper()
	a, b := pipe.New()

	if clientCfg.Name == "" {
		clientCfg.Name = "client"
	}
	if serverCfg.Name == "" {
		serverCfg.Name = "server"
	}

	client, err := New(clientCfg, s, a)
	require.NoError(t, err)
	server, err := New(serverCfg, s, nil)
	require.NoError(t, err)
	_, err = server.AddSocket(b)
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		server.Close()
		a.Close()
	})
	return client, server
}

// rawPeer speaks the protocol by hand, to control exactly what the engine
// under test receives
type rawPeer struct {
	adapter    transport.Adapter
	serializer serializer.IRPCSerializer
	envelopes  chan common.Envelope
}

// newRawPeer returns a client engine connected to a raw peer
func newRawPeer(t *testing.T, cfg Config) (*Engine, *rawPeer) {
	t.Helper()
	s := serializer.NewJSONSerializer()
	a, b := pipe.New()

	peer := &rawPeer{
		adapter:    b,
		serializer: s,
		envelopes:  make(chan common.Envelope, 256),
	}
	require.NoError(t, b.OnMessage(func(frame []byte) {
		var env common.Envelope
		if err := s.Deserialize(frame, &env); err == nil {
			peer.envelopes <- env
		}
	}))

	if cfg.Name == "" {
		cfg.Name = "client"
	}
	e, err := New(cfg, s, a)
	require.NoError(t, err)

	t.Cleanup(func() {
		e.Close()
		a.Close()
	})
	return e, peer
}

func (p *rawPeer) next(t *testing.T) common.Envelope {
	t.Helper()
	select {
	case env := <-p.envelopes:
		return env
	case <-time.After(testTimeout):
		t.Fatal("no envelope received")
		return common.Envelope{}
	}
}

func (p *rawPeer) send(t *testing.T, env common.Envelope) {
	t.Helper()
	data, err := p.serializer.Serialize(env)
	require.NoError(t, err)
	require.NoError(t, p.adapter.Send(data))
}

func (p *rawPeer) sendRaw(t *testing.T, frame []byte) {
	t.Helper()
	require.NoError(t, p.adapter.Send(frame))
}

// requireRemoteError asserts that err is a remote failure with message and status
func requireRemoteError(t *testing.T, err error, message string, status int) *common.RemoteError {
	t.Helper()
	require.Error(t, err)
	var remote *common.RemoteError
	require.ErrorAs(t, err, &remote)
	require.Equal(t, message, remote.Message)
	require.Equal(t, status, remote.StatusCode())
	return remote
}
