// Package grpcserver builds the *grpc.Server every binary's gRPC
// surface registers against. Grounded on the teacher's
// infra/server/grpc/interceptors/stream_auth.go (stream interceptor
// shape) — the Server type itself was not present in the retrieved
// pack, so its lifecycle wiring is reconstructed to match
// cmd/cmd.go/fx.go's fx.Lifecycle convention used elsewhere in the
// teacher's tree.
package grpcserver

import (
	"context"
	"log/slog"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/orderflow/coordinator/internal/domain/model"
)

// Server wraps a *grpc.Server with the listener it owns.
type Server struct {
	Server *grpc.Server
	addr   string
	logger *slog.Logger
}

// New builds a server instrumented with otelgrpc and an interceptor
// that maps model.Error (via its GRPCStatus method) onto the wire.
func New(addr string, logger *slog.Logger) *Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(errorMappingUnaryInterceptor),
		grpc.StreamInterceptor(errorMappingStreamInterceptor),
	)
	return &Server{Server: srv, addr: addr, logger: logger}
}

func errorMappingUnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err == nil {
		return resp, nil
	}
	if domainErr, ok := err.(*model.Error); ok {
		return resp, domainErr.GRPCStatus().Err()
	}
	return resp, err
}

func errorMappingStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	err := handler(srv, ss)
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*model.Error); ok {
		return domainErr.GRPCStatus().Err()
	}
	return err
}

// Start binds the listener and runs Serve in the background; call from
// an fx.Hook's OnStart.
func (s *Server) Start(context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.Server.Serve(lis); err != nil {
			s.logger.Error("grpcserver: serve exited", "error", err)
		}
	}()
	return nil
}

// Stop gracefully drains in-flight RPCs; call from an fx.Hook's OnStop.
func (s *Server) Stop(context.Context) error {
	s.Server.GracefulStop()
	return nil
}
