package server

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/engine"
	"github.com/ValentinKolb/asyncsock/rpc/serializer"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
)

var Logger = logger.GetLogger(common.LoggerServer)

// NewRPCServer creates a new RPC server
// It takes a config, transport, serializer and engine config as parameters.
// Handlers are registered on the engine returned by Engine before Serve is
// called.
//
// Usage:
//
//	s, err := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewJSONSerializer(),
//		engine.ConfigFromServer(*config),
//	)
//
//	_ = s.Engine().OnRequest("echo", func(ctx context.Context, req *engine.Request) (any, error) {
//		return req.Content, nil
//	})
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IServerTransport,
	serializer serializer.IRPCSerializer,
	engineCfg engine.Config,
) (*RPCServer, error) {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	if transport == nil {
		return nil, fmt.Errorf("server: transport is nil")
	}

	e, err := engine.New(engineCfg, serializer, nil)
	if err != nil {
		return nil, err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", config.String())

	return &RPCServer{
		config:    config,
		transport: transport,
		engine:    e,
	}, nil
}

// RPCServer accepts connections and attaches every accepted peer to one
// shared engine
type RPCServer struct {
	config    common.ServerConfig
	transport transport.IServerTransport
	engine    *engine.Engine
	serving   atomic.Bool
	closed    atomic.Bool
}

// Engine returns the engine the accepted peers are attached to. It is used
// to register handlers and to send requests to connected clients.
func (s *RPCServer) Engine() *engine.Engine {
	return s.engine
}

// Addr returns the address the server listens on, or nil if it is not
// listening yet
func (s *RPCServer) Addr() net.Addr {
	return s.transport.Addr()
}

func (s *RPCServer) registerAcceptor() {
	s.transport.RegisterAcceptor(func(adapter transport.Adapter) {
		id, err := s.engine.AddSocket(adapter)
		if err != nil {
			Logger.Warningf("Refused connection: %v", err)
			_ = adapter.Close()
			return
		}
		Logger.Debugf("Accepted connection %s", id)
	})
}

// Serve starts the RPC server
// It blocks until the transport stops listening. Serve can only be called once.
func (s *RPCServer) Serve() error {
	if s.closed.Load() {
		return common.ErrEngineClosed
	}
	if !s.serving.CompareAndSwap(false, true) {
		return fmt.Errorf("server: already serving")
	}

	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	s.registerAcceptor()
	err := s.transport.Listen(s.config)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Close stops listening, closes the engine and disconnects all peers
func (s *RPCServer) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.transport.Close()
	if engineErr := s.engine.Close(); err == nil {
		err = engineErr
	}
	Logger.Infof("RPC Server closed")
	return err
}
