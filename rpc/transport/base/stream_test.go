package base

import (
	"bytes"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/stretchr/testify/require"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

func newPipePair(t *testing.T, opts StreamOptions) (*streamAdapter, *streamAdapter) {
	t.Helper()
	c1, c2 := net.Pipe()
	a := NewStreamAdapter(c1, opts).(*streamAdapter)
	b := NewStreamAdapter(c2, opts).(*streamAdapter)
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	frames := [][]byte{[]byte("hello"), {}, bytes.Repeat([]byte("x"), 70000)}

	for _, f := range frames {
		require.NoError(t, writeFrame(&buf, f))
	}
	for _, f := range frames {
		got, err := readFrame(&buf, nil, 0)
		require.NoError(t, err)
		require.Equal(t, f, got)
	}

	_, err := readFrame(&buf, nil, 0)
	require.ErrorIs(t, err, io.EOF)
}

func TestFrameLimits(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, []byte("0123456789")))

	_, err := readFrame(bytes.NewReader(buf.Bytes()), nil, 5)
	require.ErrorIs(t, err, common.ErrFrameTooLarge)

	// truncated payload
	_, err = readFrame(bytes.NewReader(buf.Bytes()[:8]), nil, 0)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestStreamAdapterExchange(t *testing.T) {
	a, b := newPipePair(t, StreamOptions{WriteTimeout: time.Second})

	received := make(chan []byte, 3)
	require.NoError(t, b.OnMessage(func(frame []byte) { received <- frame }))
	require.ErrorIs(t, b.OnMessage(func([]byte) {}), common.ErrSinkAlreadyBound)

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, a.Send([]byte(msg)))
	}

	// frames of one peer arrive in order
	for _, msg := range []string{"one", "two", "three"} {
		select {
		case frame := <-received:
			require.Equal(t, msg, string(frame))
		case <-time.After(time.Second):
			t.Fatal("frame not delivered")
		}
	}
}

func TestStreamAdapterSendLimit(t *testing.T) {
	a, _ := newPipePair(t, StreamOptions{MaxFrameSize: 4})
	require.ErrorIs(t, a.Send([]byte("too large")), common.ErrFrameTooLarge)
}

func TestStreamAdapterPeerDisconnect(t *testing.T) {
	a, b := newPipePair(t, StreamOptions{})

	var calls atomic.Int32
	done := make(chan error, 2)
	b.OnDisconnect(func(err error) {
		calls.Add(1)
		done <- err
	})
	require.NoError(t, b.OnMessage(func([]byte) {}))

	require.NoError(t, a.Close())

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("disconnect hook not called")
	}

	// closing again does not fire the hook a second time
	require.NoError(t, b.Close())
	require.Equal(t, int32(1), calls.Load())
	require.ErrorIs(t, b.Send([]byte("late")), common.ErrTransportClosed)

	// hooks registered after the disconnect are called immediately
	late := make(chan error, 1)
	b.OnDisconnect(func(err error) { late <- err })
	require.Error(t, <-late)
}

func TestStreamAdapterLocalClose(t *testing.T) {
	a, _ := newPipePair(t, StreamOptions{})

	done := make(chan error, 1)
	a.OnDisconnect(func(err error) { done <- err })
	require.NoError(t, a.OnMessage(func([]byte) {}))

	require.NoError(t, a.Close())
	require.ErrorIs(t, <-done, common.ErrTransportClosed)
	require.Same(t, a.rw, a.Socket())
}
