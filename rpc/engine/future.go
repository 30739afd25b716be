package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var errRejectedWithoutError = errors.New("rejected without error")

var errNilAwaitable = errors.New("handler returned a nil awaitable")

// promise is a single settlement result. All settlement attempts after the
// first one are ignored.
type promise[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func newPromise[T any]() *promise[T] {
	return &promise[T]{done: make(chan struct{})}
}

// settle stores the outcome and reports whether this call settled the promise
func (p *promise[T]) settle(val T, err error) bool {
	settled := false
	p.once.Do(func() {
		p.val, p.err = val, err
		close(p.done)
		settled = true
	})
	return settled
}

func (p *promise[T]) wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// --------------------------------------------------------------------------
// Awaitable
// --------------------------------------------------------------------------

// Awaitable is a result that is not available yet. A HandlerFunc may return
// an Awaitable; the engine waits for it before replying.
type Awaitable interface {
	Wait(ctx context.Context) (any, error)
}

// --------------------------------------------------------------------------
// Future
// --------------------------------------------------------------------------

// Response is the successful answer of a peer
type Response struct {
	ID      string
	Type    string
	Content json.RawMessage
	// Socket is the raw socket the response arrived on
	Socket any
	// SocketID is the id under which the socket is attached, empty if the
	// frame was dispatched manually for an unattached adapter
	SocketID string
}

// Decode unmarshals the content of the response into v
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Content, v)
}

// Callback receives the outcome of a request
type Callback func(res *Response, err error)

// Future is the result of a request. It settles exactly once, when the
// matching response arrives, or never if no response arrives.
type Future struct {
	id      string
	reqType string
	p       *promise[*Response]
}

func newFuture(id, reqType string) *Future {
	return &Future{id: id, reqType: reqType, p: newPromise[*Response]()}
}

// ID returns the correlation id of the request
func (f *Future) ID() string { return f.id }

// Type returns the request type
func (f *Future) Type() string { return f.reqType }

// Done is closed when the future settles
func (f *Future) Done() <-chan struct{} { return f.p.done }

// Await blocks until the future settles or ctx is done. Cancelling ctx only
// abandons the wait; a late response still settles the future.
//
// A failure of the remote handler is returned as *common.RemoteError. The
// response is returned alongside so the originating socket stays known.
func (f *Future) Await(ctx context.Context) (*Response, error) {
	return f.p.wait(ctx)
}

// Wait implements Awaitable. It returns the raw content of the response, so a
// handler can return the future of a forwarded request as its own result.
func (f *Future) Wait(ctx context.Context) (any, error) {
	res, err := f.p.wait(ctx)
	if err != nil {
		return nil, err
	}
	return res.Content, nil
}

// Then calls cb once with the outcome, on its own goroutine
func (f *Future) Then(cb Callback) {
	go func() {
		<-f.p.done
		cb(f.p.val, f.p.err)
	}()
}

func (f *Future) resolve(res *Response) bool { return f.p.settle(res, nil) }

func (f *Future) reject(res *Response, err error) bool { return f.p.settle(res, err) }

// --------------------------------------------------------------------------
// Deferred
// --------------------------------------------------------------------------

// Deferred is a locally settled Awaitable. It allows a HandlerFunc to return
// immediately and to produce its result later.
type Deferred struct {
	p *promise[any]
}

// NewDeferred creates a new unsettled Deferred
func NewDeferred() *Deferred {
	return &Deferred{p: newPromise[any]()}
}

// Resolve settles the Deferred with a result. It reports false if it was
// already settled.
func (d *Deferred) Resolve(v any) bool { return d.p.settle(v, nil) }

// Reject settles the Deferred with an error. It reports false if it was
// already settled.
func (d *Deferred) Reject(err error) bool {
	if err == nil {
		err = errRejectedWithoutError
	}
	return d.p.settle(nil, err)
}

// Wait implements Awaitable
func (d *Deferred) Wait(ctx context.Context) (any, error) { return d.p.wait(ctx) }

// Done is closed when the Deferred settles
func (d *Deferred) Done() <-chan struct{} { return d.p.done }
