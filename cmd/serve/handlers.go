package serve

import (
	"context"
	"errors"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/engine"
	"net/http"
	"time"
)

// sleepRequest is the payload of the sleep handler
type sleepRequest struct {
	Milliseconds int `json:"ms"`
}

// failRequest is the payload of the fail handler
type failRequest struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// registerHandlers installs the built-in handlers of the serve command
func registerHandlers(e *engine.Engine) error {
	handlers := map[string]engine.HandlerFunc{
		"echo":    echo,
		"ping":    ping,
		"fail":    fail,
		"forward": forward(e),
	}
	for reqType, h := range handlers {
		if err := e.OnRequest(reqType, h); err != nil {
			return err
		}
	}
	return e.OnRequestCallback("sleep", sleep)
}

// echo answers with the content of the request
func echo(_ context.Context, req *engine.Request) (any, error) {
	return req.Content, nil
}

func ping(context.Context, *engine.Request) (any, error) {
	return "pong", nil
}

// fail always fails with the message and status of the request (default 500)
func fail(_ context.Context, req *engine.Request) (any, error) {
	p := failRequest{Message: "requested failure", Status: http.StatusInternalServerError}
	if len(req.Content) > 0 {
		if err := req.Decode(&p); err != nil {
			return nil, common.WithStatusCode(err, http.StatusBadRequest)
		}
	}
	return nil, common.WithStatusCode(errors.New(p.Message), p.Status)
}

// sleep answers with its payload after the requested delay
func sleep(ctx context.Context, req *engine.Request, done engine.Completion) {
	var p sleepRequest
	if err := req.Decode(&p); err != nil {
		done(nil, common.WithStatusCode(err, http.StatusBadRequest))
		return
	}

	go func() {
		timer := time.NewTimer(time.Duration(p.Milliseconds) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-timer.C:
			done(p, nil)
		case <-ctx.Done():
			done(nil, ctx.Err())
		}
	}()
}

// forward asks the calling peer to echo the content back and answers with
// the result of that nested request
func forward(e *engine.Engine) engine.HandlerFunc {
	return func(_ context.Context, req *engine.Request) (any, error) {
		return e.Request("echo", req.Content, engine.WithSocketID(req.SocketID))
	}
}
