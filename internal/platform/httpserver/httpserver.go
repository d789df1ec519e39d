// Package httpserver wraps a net/http.Server around a chi.Router with
// the fx.Lifecycle OnStart/OnStop shape used throughout the teacher's
// cmd/fx.go for background loops.
package httpserver

import (
	"context"
	"log/slog"
	"net/http"
)

type Server struct {
	http   *http.Server
	logger *slog.Logger
}

func New(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		http:   &http.Server{Addr: addr, Handler: handler},
		logger: logger,
	}
}

func (s *Server) Start(context.Context) error {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("httpserver: serve exited", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
