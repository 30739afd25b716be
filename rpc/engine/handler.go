package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	pkgerrors "github.com/pkg/errors"
	"reflect"
	"time"
)

// maxAwaitDepth bounds chains of Awaitables resolving to Awaitables
const maxAwaitDepth = 16

// Request is an inbound request as seen by a handler
type Request struct {
	ID      string
	Type    string
	Content json.RawMessage
	// Socket is the raw socket the request arrived on
	Socket any
	// SocketID is the id of the attached socket, it can be passed to
	// WithSocketID to send requests back to the same peer
	SocketID string
	// Adapter is the adapter the request arrived on
	Adapter transport.Adapter
}

// Decode unmarshals the content of the request into v
func (r *Request) Decode(v any) error {
	return json.Unmarshal(r.Content, v)
}

// HandlerFunc is a direct handler. Its return value is the result of the
// request; an Awaitable result is awaited first. A returned error or a panic
// fails the request.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

// Completion settles a request handled by a CallbackHandlerFunc. Only the
// first call counts.
type Completion func(result any, err error)

// CallbackHandlerFunc is a callback-style handler. The request settles when
// done is called; a handler that never calls done leaves the request pending.
// A panic before done was called fails the request.
type CallbackHandlerFunc func(ctx context.Context, req *Request, done Completion)

// handlerEntry is one registration. Exactly one of both fields is set.
type handlerEntry struct {
	direct   HandlerFunc
	callback CallbackHandlerFunc
}

// --------------------------------------------------------------------------
// Registration
// --------------------------------------------------------------------------

// OnRequest registers a direct handler for reqType. Only one handler can be
// registered per request type.
func (e *Engine) OnRequest(reqType string, h HandlerFunc) error {
	if h == nil {
		return common.ErrNilHandler
	}
	return e.register(reqType, handlerEntry{direct: h})
}

// OnRequestCallback registers a callback-style handler for reqType. Only one
// handler can be registered per request type.
func (e *Engine) OnRequestCallback(reqType string, h CallbackHandlerFunc) error {
	if h == nil {
		return common.ErrNilHandler
	}
	return e.register(reqType, handlerEntry{callback: h})
}

// RemoveHandler removes the handler of reqType and reports whether one was registered
func (e *Engine) RemoveHandler(reqType string) bool {
	_, ok := e.handlers.LoadAndDelete(reqType)
	return ok
}

func (e *Engine) register(reqType string, entry handlerEntry) error {
	if _, loaded := e.handlers.LoadOrStore(reqType, entry); loaded {
		return fmt.Errorf("%w: %q", common.ErrDuplicateHandler, reqType)
	}
	return nil
}

// --------------------------------------------------------------------------
// Invocation
// --------------------------------------------------------------------------

// invoke runs the handler and returns once it settled. release is called as
// soon as the handler function itself returned, before waiting for a
// deferred result, so pending results do not occupy a handler slot.
func (e *Engine) invoke(ctx context.Context, entry handlerEntry, req *Request, release func()) (any, error) {
	start := time.Now()
	defer func() {
		e.msink.AddSampleWithLabels(
			common.MetricHandlerDurationMs,
			float32(time.Since(start).Milliseconds()),
			e.labelsFor(req.Type),
		)
	}()

	if entry.callback != nil {
		result := newPromise[any]()
		done := func(v any, err error) {
			if !result.settle(v, err) {
				plog.Warningf("[%s] Completion of %q request %s called more than once, ignoring", e.cfg.Name, req.Type, req.ID)
			}
		}
		func() {
			defer release()
			defer func() {
				if r := recover(); r != nil {
					done(nil, panicError(r))
				}
			}()
			entry.callback(ctx, req, done)
		}()
		return result.wait(ctx)
	}

	v, err := func() (v any, err error) {
		defer release()
		defer func() {
			if r := recover(); r != nil {
				v, err = nil, panicError(r)
			}
		}()
		return entry.direct(ctx, req)
	}()

	if err != nil {
		return nil, err
	}
	return awaitResult(ctx, v)
}

// awaitResult unwraps v while it is an Awaitable. A panicking Wait and a nil
// Awaitable fail the request like a handler error.
func awaitResult(ctx context.Context, v any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, panicError(r)
		}
	}()
	for depth := 0; ; depth++ {
		aw, ok := v.(Awaitable)
		if !ok {
			return v, nil
		}
		if isNilAwaitable(aw) {
			return nil, errNilAwaitable
		}
		if depth == maxAwaitDepth {
			return nil, fmt.Errorf("handler result nested deeper than %d awaitables", maxAwaitDepth)
		}
		if v, err = aw.Wait(ctx); err != nil {
			return nil, err
		}
	}
}

// isNilAwaitable reports whether aw is a nil pointer wrapped in the interface
func isNilAwaitable(aw Awaitable) bool {
	rv := reflect.ValueOf(aw)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// panicError converts a recovered value into an error with the stack of the panic
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return pkgerrors.WithStack(err)
	}
	return pkgerrors.New(fmt.Sprint(r))
}
