package engine

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/serializer"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"github.com/google/uuid"
	"github.com/hashicorp/go-metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"reflect"
	"sync/atomic"
)

var plog = logger.GetLogger(common.LoggerEngine)

// attachments maps every attached raw socket to the engine owning it. It
// prevents one socket from being attached to two engines, which would make
// both of them answer every request.
var attachments = xsync.NewMapOf[any, *Engine]()

// attachedSocket is one peer attached to an engine
type attachedSocket struct {
	id      string
	socket  any
	adapter transport.Adapter
}

// pendingRequest is the bookkeeping of one outstanding request
type pendingRequest struct {
	future   *Future
	socketID string
}

// Engine correlates requests and responses over one or many sockets. It
// sends requests and settles their futures when the responses arrive, and it
// dispatches inbound requests to the registered handlers and replies with
// their results.
//
// The same engine type serves both roles: an initiator constructs it with the
// adapter of its connection, an acceptor attaches one adapter per peer with
// AddSocket.
type Engine struct {
	cfg        Config
	serializer serializer.IRPCSerializer

	// default adapter (initiator role), may be nil
	adapter         transport.Adapter
	defaultSocketID string

	pending  *xsync.MapOf[string, *pendingRequest]
	handlers *xsync.MapOf[string, handlerEntry]
	sockets  *xsync.MapOf[string, *attachedSocket]

	events eventBus

	// semaphore bounding concurrently running handlers, nil if unbounded
	sem chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	msink  metrics.MetricSink
	labels []metrics.Label
}

// New creates a new engine. adapter is the default adapter used by Request
// and may be nil (acceptor role). A non-nil adapter is attached right away.
func New(cfg Config, s serializer.IRPCSerializer, adapter transport.Adapter) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("engine: serializer is nil")
	}
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:        cfg,
		serializer: s,
		pending:    xsync.NewMapOf[string, *pendingRequest](),
		handlers:   xsync.NewMapOf[string, handlerEntry](),
		sockets:    xsync.NewMapOf[string, *attachedSocket](),
		ctx:        ctx,
		cancel:     cancel,
		msink:      cfg.MetricSink,
		labels:     append(append([]metrics.Label{}, cfg.MetricLabels...), common.LabelEngine.M(cfg.Name)),
	}

	if cfg.MaxConcurrentHandlers > 0 {
		e.sem = make(chan struct{}, cfg.MaxConcurrentHandlers)
	}

	if adapter != nil {
		id, err := e.AddSocket(adapter)
		if err != nil {
			cancel()
			return nil, err
		}
		e.adapter = adapter
		e.defaultSocketID = id
	}

	return e, nil
}

// Name returns the configured name of the engine
func (e *Engine) Name() string { return e.cfg.Name }

// --------------------------------------------------------------------------
// Requests
// --------------------------------------------------------------------------

type requestOptions struct {
	adapter  transport.Adapter
	socketID string
	callback Callback
}

// RequestOption configures a single request
type RequestOption func(*requestOptions)

// WithAdapter sends the request over the given adapter instead of the
// default one. The adapter should be attached to this engine, otherwise the
// response is never dispatched.
func WithAdapter(adapter transport.Adapter) RequestOption {
	return func(o *requestOptions) { o.adapter = adapter }
}

// WithSocketID sends the request to the attached socket with the given id
func WithSocketID(id string) RequestOption {
	return func(o *requestOptions) { o.socketID = id }
}

// WithCallback additionally reports the outcome of the request to cb
func WithCallback(cb Callback) RequestOption {
	return func(o *requestOptions) { o.callback = cb }
}

// Request sends a request of reqType with payload to a peer and returns its
// future immediately. payload is JSON encoded (json.RawMessage is sent as is).
//
// Configuration errors (no adapter, unknown socket) and transport errors are
// returned directly and never through the future.
func (e *Engine) Request(reqType string, payload any, opts ...RequestOption) (*Future, error) {
	if e.closed.Load() {
		return nil, common.ErrEngineClosed
	}

	o := requestOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	adapter, socketID, err := e.resolveTarget(o)
	if err != nil {
		return nil, err
	}

	content, err := common.EncodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	// store the pending request before sending, the response may arrive
	// before Send returns
	var f *Future
	for {
		f = newFuture(uuid.NewString(), reqType)
		if _, loaded := e.pending.LoadOrStore(f.id, &pendingRequest{future: f, socketID: socketID}); !loaded {
			break
		}
	}
	// the socket may have been detached after it was resolved, in which case
	// its sweep missed the new entry
	if socketID != "" && !e.cfg.KeepPendingOnDisconnect {
		if _, ok := e.sockets.Load(socketID); !ok {
			e.pending.Delete(f.id)
			e.msink.IncrCounterWithLabels(common.MetricRequestOutErrorCount, 1, e.labelsFor(reqType))
			return nil, fmt.Errorf("%w: %s", common.ErrPeerDisconnected, socketID)
		}
	}
	data, err := e.serializer.Serialize(common.NewRequestEnvelope(f.id, reqType, content))
	if err == nil {
		err = adapter.Send(data)
	}
	if err != nil {
		e.pending.Delete(f.id)
		e.msink.IncrCounterWithLabels(common.MetricRequestOutErrorCount, 1, e.labelsFor(reqType))
		return nil, err
	}

	if o.callback != nil {
		f.Then(o.callback)
	}

	e.msink.IncrCounterWithLabels(common.MetricRequestOutCount, 1, e.labelsFor(reqType))
	e.updatePendingGauge()

	// a concurrent Close may have missed the new entry
	if e.closed.Load() {
		if _, ok := e.pending.LoadAndDelete(f.id); ok {
			f.reject(nil, common.ErrEngineClosed)
		}
	}

	return f, nil
}

// Call sends a request over the default adapter (or the one selected by
// opts), waits for the response and decodes its content into T.
func Call[T any](ctx context.Context, e *Engine, reqType string, payload any, opts ...RequestOption) (T, error) {
	var out T
	f, err := e.Request(reqType, payload, opts...)
	if err != nil {
		return out, err
	}
	res, err := f.Await(ctx)
	if err != nil {
		return out, err
	}
	if err := res.Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode %q response: %w", reqType, err)
	}
	return out, nil
}

// resolveTarget selects the adapter a request is sent over
func (e *Engine) resolveTarget(o requestOptions) (transport.Adapter, string, error) {
	switch {
	case o.adapter != nil:
		id := ""
		if as, ok := e.socketOf(o.adapter.Socket()); ok {
			id = as.id
		}
		return o.adapter, id, nil
	case o.socketID != "":
		as, ok := e.sockets.Load(o.socketID)
		if !ok {
			return nil, "", fmt.Errorf("%w: %s", common.ErrUnknownSocket, o.socketID)
		}
		return as.adapter, as.id, nil
	case e.adapter != nil:
		return e.adapter, e.defaultSocketID, nil
	default:
		return nil, "", common.ErrNoAdapter
	}
}

// --------------------------------------------------------------------------
// Sockets
// --------------------------------------------------------------------------

// AddSocket attaches a peer to the engine. Inbound frames of the adapter are
// dispatched by the engine from now on and a disconnect of the adapter
// detaches it again. The returned id can be used with WithSocketID.
//
// Attaching a socket that is already attached to any engine fails with
// common.ErrAlreadyAttached.
func (e *Engine) AddSocket(adapter transport.Adapter) (string, error) {
	if e.closed.Load() {
		return "", common.ErrEngineClosed
	}
	if adapter == nil {
		return "", common.ErrNoAdapter
	}

	socket := adapter.Socket()
	if socket == nil || !reflect.TypeOf(socket).Comparable() {
		return "", common.ErrSocketIdentity
	}

	if owner, loaded := attachments.LoadOrStore(socket, e); loaded {
		e.msink.IncrCounterWithLabels(common.MetricSocketAttachRefusedCount, 1, e.labels)
		return "", fmt.Errorf("%w (owner: %s)", common.ErrAlreadyAttached, owner.cfg.Name)
	}

	as := &attachedSocket{
		id:      uuid.NewString(),
		socket:  socket,
		adapter: adapter,
	}
	e.sockets.Store(as.id, as)

	err := adapter.OnMessage(func(frame []byte) {
		// frames of detached sockets are dropped
		if current, ok := e.sockets.Load(as.id); ok {
			e.dispatch(frame, current)
		}
	})
	if err != nil {
		e.sockets.Delete(as.id)
		e.releaseAttachment(socket)
		return "", err
	}

	adapter.OnDisconnect(func(reason error) {
		e.detach(as.id, fmt.Errorf("%w: %v", common.ErrPeerDisconnected, reason), reason)
	})

	e.msink.SetGaugeWithLabels(common.MetricAttachedSockets, float32(e.sockets.Size()), e.labels)
	plog.Debugf("[%s] Attached socket %s", e.cfg.Name, as.id)
	return as.id, nil
}

// RemoveSocket detaches a socket without closing it. Requests pending on it
// fail with common.ErrPeerDisconnected unless KeepPendingOnDisconnect is set.
func (e *Engine) RemoveSocket(id string) bool {
	return e.detach(id, fmt.Errorf("%w: socket removed", common.ErrPeerDisconnected), nil)
}

// Sockets returns the ids of all attached sockets
func (e *Engine) Sockets() []string {
	ids := make([]string, 0, e.sockets.Size())
	e.sockets.Range(func(id string, _ *attachedSocket) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// detach removes the socket and fails its pending requests with failure
func (e *Engine) detach(id string, failure error, reason error) bool {
	as, ok := e.sockets.LoadAndDelete(id)
	if !ok {
		return false
	}
	e.releaseAttachment(as.socket)
	e.msink.SetGaugeWithLabels(common.MetricAttachedSockets, float32(e.sockets.Size()), e.labels)

	if reason != nil {
		plog.Infof("[%s] Socket %s disconnected: %v", e.cfg.Name, id, reason)
	} else {
		plog.Debugf("[%s] Socket %s removed", e.cfg.Name, id)
	}

	if !e.cfg.KeepPendingOnDisconnect {
		failed := 0
		e.pending.Range(func(reqID string, p *pendingRequest) bool {
			if p.socketID == id {
				if _, ok := e.pending.LoadAndDelete(reqID); ok {
					p.future.reject(nil, failure)
					failed++
				}
			}
			return true
		})
		if failed > 0 {
			e.msink.IncrCounterWithLabels(common.MetricPeerDisconnectFailCount, float32(failed), e.labels)
			e.updatePendingGauge()
		}
	}

	e.events.emit(Event{Kind: EventDisconnect, SocketID: id, Socket: as.socket, Reason: reason})
	return true
}

// releaseAttachment removes the socket from the attachment table if this
// engine owns it
func (e *Engine) releaseAttachment(socket any) {
	attachments.Compute(socket, func(owner *Engine, loaded bool) (*Engine, bool) {
		return owner, !loaded || owner == e
	})
}

// socketOf returns the attachment of a raw socket
func (e *Engine) socketOf(socket any) (*attachedSocket, bool) {
	if socket == nil || !reflect.TypeOf(socket).Comparable() {
		return nil, false
	}
	var found *attachedSocket
	e.sockets.Range(func(_ string, as *attachedSocket) bool {
		if as.socket == socket {
			found = as
			return false
		}
		return true
	})
	return found, found != nil
}

// --------------------------------------------------------------------------
// Inbound
// --------------------------------------------------------------------------

// Dispatch processes one inbound frame received on adapter. It is called
// automatically for attached sockets and only needs to be called manually
// for adapters that are not attached. Frames without an adapter are dropped.
func (e *Engine) Dispatch(frame []byte, adapter transport.Adapter) {
	if adapter == nil {
		plog.Warningf("[%s] Dropping frame of %d bytes dispatched without adapter", e.cfg.Name, len(frame))
		return
	}
	as, ok := e.socketOf(adapter.Socket())
	if !ok {
		as = &attachedSocket{socket: adapter.Socket(), adapter: adapter}
	}
	e.dispatch(frame, as)
}

func (e *Engine) dispatch(frame []byte, as *attachedSocket) {
	if e.closed.Load() {
		return
	}

	var env common.Envelope
	if err := e.serializer.Deserialize(frame, &env); err != nil || !env.IsProtocol() {
		// the socket may be shared with unrelated traffic
		e.msink.IncrCounterWithLabels(common.MetricNonProtocolCount, 1, e.labels)
		plog.Debugf("[%s] Ignoring non-protocol frame of %d bytes", e.cfg.Name, len(frame))
		return
	}

	switch env.Kind() {
	case common.KindRequest:
		e.handleRequest(env, as)
	case common.KindResponse:
		e.handleResponse(env, as)
	}
}

func (e *Engine) handleRequest(env common.Envelope, as *attachedSocket) {
	e.msink.IncrCounterWithLabels(common.MetricRequestInCount, 1, e.labelsFor(env.Type))
	e.events.emit(Event{
		Kind:     EventRequest,
		ID:       env.ID,
		Type:     env.Type,
		Content:  env.Content,
		SocketID: as.id,
		Socket:   as.socket,
	})

	req := &Request{
		ID:       env.ID,
		Type:     env.Type,
		Content:  env.Content,
		Socket:   as.socket,
		SocketID: as.id,
		Adapter:  as.adapter,
	}

	entry, ok := e.handlers.Load(env.Type)
	if !ok {
		plog.Warningf("[%s] No listener for %q attached, answering request %s with %d", e.cfg.Name, env.Type, env.ID, common.StatusNoHandler)
		e.msink.IncrCounterWithLabels(common.MetricRequestUnhandledCount, 1, e.labelsFor(env.Type))
		e.reply(as, req, nil, common.WithStatusCode(
			fmt.Errorf("no listener for %s attached", env.Type), common.StatusNoHandler))
		return
	}

	// block the reading goroutine while all handler slots are taken
	release := func() {}
	if e.sem != nil {
		select {
		case e.sem <- struct{}{}:
			var once atomic.Bool
			release = func() {
				if once.CompareAndSwap(false, true) {
					<-e.sem
				}
			}
		case <-e.ctx.Done():
			return
		}
	}

	go func() {
		defer release()
		result, err := e.invoke(e.ctx, entry, req, release)
		if e.ctx.Err() != nil {
			plog.Debugf("[%s] Dropping result of %q request %s, engine closed", e.cfg.Name, req.Type, req.ID)
			return
		}
		e.reply(as, req, result, err)
	}()
}

func (e *Engine) handleResponse(env common.Envelope, as *attachedSocket) {
	e.msink.IncrCounterWithLabels(common.MetricResponseInCount, 1, e.labelsFor(env.Type))
	e.events.emit(Event{
		Kind:     EventResponse,
		ID:       env.ID,
		Type:     env.Type,
		Content:  env.Content,
		Err:      env.Err,
		SocketID: as.id,
		Socket:   as.socket,
	})

	p, ok := e.pending.LoadAndDelete(env.ID)
	if !ok {
		// stale, duplicated or foreign response
		e.msink.IncrCounterWithLabels(common.MetricResponseUnmatchedCount, 1, e.labelsFor(env.Type))
		plog.Debugf("[%s] Dropping unmatched response %s (%q)", e.cfg.Name, env.ID, env.Type)
		return
	}
	e.updatePendingGauge()

	res := &Response{
		ID:       env.ID,
		Type:     env.Type,
		Content:  env.Content,
		Socket:   as.socket,
		SocketID: as.id,
	}

	if !env.Err {
		p.future.resolve(res)
		return
	}

	desc, err := common.DecodeErrorDescriptor(env.Content)
	if err != nil {
		p.future.reject(res, err)
		return
	}
	p.future.reject(res, desc.Err())
}

// reply sends the response of a handled request. Send failures are logged
// and not retried.
func (e *Engine) reply(as *attachedSocket, req *Request, result any, handlerErr error) {
	env, err := e.responseEnvelope(req, result, handlerErr)
	if err != nil {
		plog.Errorf("[%s] Failed to build response to %q request %s: %v", e.cfg.Name, req.Type, req.ID, err)
		return
	}

	data, err := e.serializer.Serialize(env)
	if err == nil {
		err = as.adapter.Send(data)
	}
	if err != nil {
		e.msink.IncrCounterWithLabels(common.MetricResponseOutErrorCount, 1, e.labelsFor(req.Type))
		plog.Errorf("[%s] Failed to send response to %q request %s: %v", e.cfg.Name, req.Type, req.ID, err)
		return
	}
	e.msink.IncrCounterWithLabels(common.MetricResponseOutCount, 1, e.labelsFor(req.Type))
}

func (e *Engine) responseEnvelope(req *Request, result any, handlerErr error) (common.Envelope, error) {
	if handlerErr == nil {
		content, err := common.EncodePayload(result)
		if err == nil {
			return common.NewResponseEnvelope(req.ID, req.Type, content), nil
		}
		// an unencodable result fails the request
		handlerErr = fmt.Errorf("failed to encode result: %w", err)
	}

	desc := common.NewErrorDescriptor(handlerErr)
	e.msink.IncrCounterWithLabels(common.MetricHandlerErrorCount, 1,
		append(e.labelsFor(req.Type), common.LabelStatusCode.M(fmt.Sprint(desc.StatusCode))))
	plog.Debugf("[%s] %q request %s failed with %d: %s", e.cfg.Name, req.Type, req.ID, desc.StatusCode, desc.Message)
	return common.NewErrorEnvelope(req.ID, req.Type, desc)
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Close stops the engine. Pending requests fail with common.ErrEngineClosed,
// the contexts of running handlers are cancelled and all sockets are
// detached. Sockets attached with AddSocket are closed, the default adapter
// passed to New stays open.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.cancel()

	e.pending.Range(func(id string, p *pendingRequest) bool {
		if _, ok := e.pending.LoadAndDelete(id); ok {
			p.future.reject(nil, common.ErrEngineClosed)
		}
		return true
	})
	e.updatePendingGauge()

	e.sockets.Range(func(id string, as *attachedSocket) bool {
		e.sockets.Delete(id)
		e.releaseAttachment(as.socket)
		if id != e.defaultSocketID {
			if err := as.adapter.Close(); err != nil {
				plog.Debugf("[%s] Failed to close socket %s: %v", e.cfg.Name, id, err)
			}
		}
		return true
	})
	e.msink.SetGaugeWithLabels(common.MetricAttachedSockets, 0, e.labels)

	plog.Infof("[%s] Engine closed", e.cfg.Name)
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (e *Engine) labelsFor(reqType string) []metrics.Label {
	labels := make([]metrics.Label, 0, len(e.labels)+2)
	labels = append(labels, e.labels...)
	return append(labels, common.LabelRequestType.M(reqType))
}

func (e *Engine) updatePendingGauge() {
	e.msink.SetGaugeWithLabels(common.MetricPendingRequests, float32(e.pending.Size()), e.labels)
}
