package transport

import (
	"errors"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/stretchr/testify/require"
	"testing"
)

// fakeSocket records everything the factory functions do with it
type fakeSocket struct {
	sent   [][]byte
	sink   MessageSink
	hook   DisconnectHook
	closed bool
}

func (s *fakeSocket) Close() error {
	s.closed = true
	return nil
}

func newFakeFactory() func(*fakeSocket) Adapter {
	return NewAdapterFactory(
		func(s *fakeSocket, frame []byte) error {
			if s.closed {
				return errors.New("closed")
			}
			s.sent = append(s.sent, frame)
			return nil
		},
		func(s *fakeSocket, sink MessageSink) { s.sink = sink },
		func(s *fakeSocket, hook DisconnectHook) { s.hook = hook },
	)
}

func TestAdapterFactoryDelegates(t *testing.T) {
	socket := &fakeSocket{}
	adapter := newFakeFactory()(socket)

	require.Same(t, socket, adapter.Socket())

	require.NoError(t, adapter.Send([]byte("hello")))
	require.Equal(t, [][]byte{[]byte("hello")}, socket.sent)

	var received []byte
	require.NoError(t, adapter.OnMessage(func(frame []byte) { received = frame }))
	socket.sink([]byte("world"))
	require.Equal(t, []byte("world"), received)

	var disconnectErr error
	adapter.OnDisconnect(func(err error) { disconnectErr = err })
	socket.hook(common.ErrTransportClosed)
	require.ErrorIs(t, disconnectErr, common.ErrTransportClosed)

	require.NoError(t, adapter.Close())
	require.True(t, socket.closed)

	// send errors are returned, never swallowed
	require.Error(t, adapter.Send([]byte("late")))
}

func TestAdapterFactorySingleSink(t *testing.T) {
	adapter := newFakeFactory()(&fakeSocket{})

	require.NoError(t, adapter.OnMessage(func([]byte) {}))
	require.ErrorIs(t, adapter.OnMessage(func([]byte) {}), common.ErrSinkAlreadyBound)
}

func TestAdapterFactoryWithoutDisconnect(t *testing.T) {
	type channelSocket chan []byte

	newAdapter := NewAdapterFactory(
		func(s channelSocket, frame []byte) error {
			s <- frame
			return nil
		},
		func(s channelSocket, sink MessageSink) {},
		nil,
	)

	ch := make(channelSocket, 1)
	adapter := newAdapter(ch)

	// no disconnect source and no io.Closer: both are no-ops
	adapter.OnDisconnect(func(error) { t.Fatal("hook must never fire") })
	require.NoError(t, adapter.Close())

	require.NoError(t, adapter.Send([]byte("x")))
	require.Equal(t, []byte("x"), <-ch)
}
