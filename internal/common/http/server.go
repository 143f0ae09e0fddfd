// internal/common/http/server.go
package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"medication-alerts/internal/common/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server runs an http.Handler until its context is cancelled.
type Server struct {
	srv    *http.Server
	logger logger.Logger
}

func NewServer(addr string, handler http.Handler, log logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: log,
	}
}

// Serve listens on the configured address and blocks until ctx is done, then
// drains in-flight requests. The returned error is nil on a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening", map[string]interface{}{"address": ln.Addr().String()})
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP API stopped", nil)
	return nil
}
