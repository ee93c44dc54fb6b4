package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"
)

type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type HTTPServer struct {
	srv *http.Server

	addrMu sync.RWMutex
	addr   net.Addr
	ready  chan struct{}
}

var _ Server = (*HTTPServer)(nil)

func NewHTTPServer(handler http.Handler, opts Options) *HTTPServer {
	return &HTTPServer{
		srv: &http.Server{
			Addr:         opts.Addr,
			Handler:      handler,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
		ready: make(chan struct{}),
	}
}

// Start listens and serves until Stop is called. The context scopes request contexts.
func (h *HTTPServer) Start(ctx context.Context) error {
	h.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	ln, err := net.Listen("tcp", h.srv.Addr)
	if err != nil {
		return err
	}
	h.addrMu.Lock()
	h.addr = ln.Addr()
	h.addrMu.Unlock()
	close(h.ready)

	if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr blocks until the listener is bound and returns its address.
func (h *HTTPServer) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-h.ready:
		h.addrMu.RLock()
		defer h.addrMu.RUnlock()
		return h.addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *HTTPServer) Stop(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}
