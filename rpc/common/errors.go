package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

const (
	// DefaultStatusCode is used for failures that do not carry a status code
	DefaultStatusCode = http.StatusInternalServerError
	// StatusNoHandler is used when no handler is registered for a request type
	StatusNoHandler = http.StatusNotFound
)

var (
	ErrNoAdapter         = errors.New("engine: no adapter provided and no default adapter set")
	ErrUnknownSocket     = errors.New("engine: socket is not attached")
	ErrAlreadyAttached   = errors.New("engine: socket is already attached to an engine, this would lead to duplicated responses")
	ErrSocketIdentity    = errors.New("engine: socket handle is not comparable")
	ErrDuplicateHandler  = errors.New("engine: a handler is already registered for this request type")
	ErrNilHandler        = errors.New("engine: handler is nil")
	ErrPeerDisconnected  = errors.New("engine: peer disconnected before responding")
	ErrEngineClosed      = errors.New("engine: closed")
	ErrInvalidResponse   = errors.New("engine: invalid error descriptor in response")
	ErrInvalidEnvelope   = errors.New("serializer: invalid envelope")
	ErrNotProtocolFrame  = errors.New("serializer: frame does not belong to this protocol")
	ErrFrameTooLarge     = errors.New("transport: frame too large")
	ErrTransportClosed   = errors.New("transport: closed")
	ErrSinkAlreadyBound  = errors.New("transport: message sink already registered")
	ErrNoTLSConfig       = errors.New("transport: tls configuration is required")
	ErrTransportNotReady = errors.New("transport: not listening")
)

// --------------------------------------------------------------------------
// Status Codes
// --------------------------------------------------------------------------

// StatusCoder is implemented by errors that carry a status code
type StatusCoder interface {
	StatusCode() int
}

type statusError struct {
	err  error
	code int
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) StatusCode() int { return e.code }

// WithStatusCode attaches a status code to err. The code is reported to the
// requesting peer if err fails a request handler.
func WithStatusCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &statusError{err: err, code: code}
}

// StatusCodeOf returns the status code carried by err or DefaultStatusCode
func StatusCodeOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) && sc.StatusCode() > 0 {
		return sc.StatusCode()
	}
	return DefaultStatusCode
}

// --------------------------------------------------------------------------
// Error Descriptor
// --------------------------------------------------------------------------

// ErrorDescriptor is the serialized form of a failure sent in a response
type ErrorDescriptor struct {
	Message    string `json:"message"`
	Stack      string `json:"stack"`
	StatusCode int    `json:"statusCode"`
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// NewErrorDescriptor converts err into its wire form
func NewErrorDescriptor(err error) ErrorDescriptor {
	if err == nil {
		err = errors.New("unknown error")
	}
	return ErrorDescriptor{
		Message:    err.Error(),
		Stack:      stackOf(err),
		StatusCode: StatusCodeOf(err),
	}
}

// Err rebuilds the remote error from the descriptor
func (d ErrorDescriptor) Err() *RemoteError {
	code := d.StatusCode
	if code <= 0 {
		code = DefaultStatusCode
	}
	return &RemoteError{
		Message: d.Message,
		Stack:   d.Stack,
		Status:  code,
	}
}

// DecodeErrorDescriptor parses the content of a failed response
func DecodeErrorDescriptor(content json.RawMessage) (ErrorDescriptor, error) {
	var desc ErrorDescriptor
	if err := json.Unmarshal(content, &desc); err != nil {
		return ErrorDescriptor{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return desc, nil
}

// stackOf returns the stack recorded in err. If none is recorded, the
// current stack is captured instead.
func stackOf(err error) string {
	var remote *RemoteError
	if errors.As(err, &remote) && remote.Stack != "" {
		return remote.Stack
	}
	var st stackTracer
	if errors.As(err, &st) {
		return fmt.Sprintf("%s%+v", err.Error(), st.StackTrace())
	}
	return fmt.Sprintf("%+v", pkgerrors.WithStack(err))
}

// --------------------------------------------------------------------------
// Remote Error
// --------------------------------------------------------------------------

// RemoteError is the failure reported by the peer that handled a request.
// Thrown errors, returned errors, rejected futures and errors passed to a
// completion callback all arrive as a RemoteError.
type RemoteError struct {
	Message string
	Stack   string
	Status  int
}

func (e *RemoteError) Error() string   { return e.Message }
func (e *RemoteError) StatusCode() int { return e.Status }
