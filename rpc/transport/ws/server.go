package ws

import (
	"bufio"
	"errors"
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"github.com/gorilla/websocket"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"net/http"
	"sync"
	"time"
)

var Logger = logger.GetLogger(common.LoggerTransport)

// DefaultPath is the path upgraded to WebSocket connections when the endpoint
// does not name one
const DefaultPath = "/"

// NewWSServerTransport creates a new WebSocket server transport
func NewWSServerTransport() transport.IServerTransport {
	return &serverTransport{}
}

type serverTransport struct {
	mu       sync.Mutex
	acceptor transport.AcceptFunc
	listener net.Listener
	server   *http.Server
	upgrader websocket.Upgrader
	config   common.ServerConfig
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterAcceptor(acceptor transport.AcceptFunc) {
	t.acceptor = acceptor
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.acceptor == nil {
		return errors.New("no acceptor registered")
	}

	u, err := parseEndpoint(config.Transport.Endpoint)
	if err != nil {
		return err
	}
	if u.Scheme == "wss" {
		return errors.New("wss is not served directly, terminate TLS in front of the server")
	}
	path := u.Path

	t.config = config
	t.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.Transport.ReadBufferSize,
		WriteBufferSize: config.Transport.WriteBufferSize,
		// peers are not browsers, any origin is accepted
		CheckOrigin: func(*http.Request) bool { return true },
	}

	// Create a new HTTP server
	mux := http.NewServeMux()

	// Register handler
	if config.LogLevel == "debug" {
		mux.HandleFunc(path, loggerMiddleware(t.handleUpgrade))
	} else {
		mux.HandleFunc(path, t.handleUpgrade)
	}

	listener, err := net.Listen("tcp", u.Host)
	if err != nil {
		return fmt.Errorf("failed to create TCP socket: %w", err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: time.Duration(config.TimeoutSecond) * time.Second,
	}

	t.mu.Lock()
	t.listener, t.server = listener, server
	t.mu.Unlock()

	Logger.Infof("Starting WebSocket server on %s%s", listener.Addr(), path)

	// Serve blocks until Close, hijacked connections are not affected by it
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (t *serverTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *serverTransport) Close() error {
	t.mu.Lock()
	server := t.server
	t.server, t.listener = nil, nil
	t.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleUpgrade upgrades the request and hands the connection to the acceptor
func (t *serverTransport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already answered the request
		Logger.Warningf("Failed to upgrade connection from %s: %v", r.RemoteAddr, err)
		return
	}

	Logger.Debugf("Accepted WebSocket connection from %s", r.RemoteAddr)
	conn := newConn(ws, t.config.Transport.MaxFrameSize, time.Duration(t.config.TimeoutSecond)*time.Second)
	t.acceptor(newAdapter(conn))
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter captures the status code of rejected upgrades. It keeps the
// http.Hijacker of the wrapped writer reachable for the upgrader.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack hands the connection to the upgrader and records the switch of protocols
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// loggerMiddleware is a middleware that logs upgrade requests
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create custom response writer to capture status code
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		// Process request
		next.ServeHTTP(rw, r)

		// Log the request
		Logger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	}
}
