package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// StreamOptions configures a stream adapter
type StreamOptions struct {
	// MaxFrameSize limits inbound and outbound frames, 0 disables the limit
	MaxFrameSize uint32
	// WriteTimeout is applied as write deadline for every frame if the
	// stream supports deadlines, 0 disables it
	WriteTimeout time.Duration
}

// deadlineWriter is implemented by net.Conn and quic streams
type deadlineWriter interface {
	SetWriteDeadline(t time.Time) error
}

// streamAdapter implements transport.Adapter for any ordered byte stream by
// framing messages with a length prefix
type streamAdapter struct {
	rw   io.ReadWriteCloser
	opts StreamOptions

	writeMu sync.Mutex

	sinkBound atomic.Bool

	hooksMu   sync.Mutex
	hooks     []transport.DisconnectHook
	closed    bool
	closeErr  error
	closeOnce sync.Once
}

// NewStreamAdapter wraps a stream into an adapter. The stream itself is used
// as socket identity. Reading starts when the message sink is registered.
func NewStreamAdapter(rw io.ReadWriteCloser, opts StreamOptions) transport.Adapter {
	return &streamAdapter{
		rw:   rw,
		opts: opts,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.Adapter)
// --------------------------------------------------------------------------

func (a *streamAdapter) Send(frame []byte) error {
	if a.opts.MaxFrameSize > 0 && uint32(len(frame)) > a.opts.MaxFrameSize {
		return fmt.Errorf("%w: %d > %d bytes", common.ErrFrameTooLarge, len(frame), a.opts.MaxFrameSize)
	}
	if a.isClosed() {
		return common.ErrTransportClosed
	}

	// Lock the stream only for writing
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if a.opts.WriteTimeout > 0 {
		if dw, ok := a.rw.(deadlineWriter); ok {
			if err := dw.SetWriteDeadline(time.Now().Add(a.opts.WriteTimeout)); err != nil {
				return fmt.Errorf("failed to set write deadline: %w", err)
			}
		}
	}

	return writeFrame(a.rw, frame)
}

func (a *streamAdapter) OnMessage(sink transport.MessageSink) error {
	if !a.sinkBound.CompareAndSwap(false, true) {
		return common.ErrSinkAlreadyBound
	}
	go a.readLoop(sink)
	return nil
}

func (a *streamAdapter) OnDisconnect(hook transport.DisconnectHook) {
	a.hooksMu.Lock()
	if a.closed {
		// already gone, report immediately
		err := a.closeErr
		a.hooksMu.Unlock()
		hook(err)
		return
	}
	a.hooks = append(a.hooks, hook)
	a.hooksMu.Unlock()
}

func (a *streamAdapter) Socket() any {
	return a.rw
}

func (a *streamAdapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		err = a.rw.Close()
	})
	a.disconnect(common.ErrTransportClosed)
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readLoop reads frames until the stream fails and hands them to the sink
func (a *streamAdapter) readLoop(sink transport.MessageSink) {
	header := make([]byte, frameHeaderSize)
	for {
		frame, err := readFrame(a.rw, header, a.opts.MaxFrameSize)
		if err != nil {
			switch {
			case a.isClosed():
				// closed locally, hooks already fired
			case errors.Is(err, io.EOF):
				Logger.Debugf("Stream closed by peer")
			case errors.Is(err, net.ErrClosed):
				err = common.ErrTransportClosed
			default:
				Logger.Errorf("Error reading frame: %v", err)
			}
			a.closeOnce.Do(func() { _ = a.rw.Close() })
			a.disconnect(err)
			return
		}
		sink(frame)
	}
}

func (a *streamAdapter) isClosed() bool {
	a.hooksMu.Lock()
	defer a.hooksMu.Unlock()
	return a.closed
}

// disconnect marks the adapter as closed and fires all hooks exactly once
func (a *streamAdapter) disconnect(reason error) {
	a.hooksMu.Lock()
	if a.closed {
		a.hooksMu.Unlock()
		return
	}
	a.closed = true
	a.closeErr = reason
	hooks := a.hooks
	a.hooks = nil
	a.hooksMu.Unlock()

	for _, hook := range hooks {
		hook(reason)
	}
}
