package httpserver

import (
	"context"
	"net/http"
	"time"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultAddr            = ":80"
	defaultShutdownTimeout = 3 * time.Second
)

type Server struct {
	server          *http.Server
	errCh           chan error
	shutdownTimeout time.Duration
}

type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
}

func New(handler http.Handler, opt Options) *Server {
	addr := opt.Addr
	if addr == "" {
		addr = defaultAddr
	}

	shutdownTimeout := opt.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	// Read/write timeouts stay unset: metadata resolution handlers and the
	// event stream outlive any sane fixed deadline.
	httpServer := &http.Server{
		Handler:           handler,
		Addr:              addr,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	srv := &Server{
		server:          httpServer,
		errCh:           make(chan error, 10),
		shutdownTimeout: shutdownTimeout,
	}

	go srv.start()

	return srv
}

func (s *Server) start() {
	s.errCh <- s.server.ListenAndServe()
	close(s.errCh)
}

// func (s *Server) Notify() <-chan error {
// 	return s.errCh
// }

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}
