package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/dmitrijs2005/cipherrelay/internal/logging"
	pb "github.com/dmitrijs2005/cipherrelay/internal/proto"
	"github.com/dmitrijs2005/cipherrelay/internal/server/audit"
	"github.com/dmitrijs2005/cipherrelay/internal/server/hub"
)

// AuditStatser reports per-sink audit counters.
type AuditStatser interface {
	Stats() audit.Stats
}

type GRPCServer struct {
	address     string
	hub         *hub.Hub
	audit       []AuditStatser
	logger      logging.Logger
	jwtSecret   []byte
	idleTimeout time.Duration
}

func NewGRPCServer(a string, l logging.Logger, h *hub.Hub, secretKey string, idle time.Duration, sinks ...AuditStatser) *GRPCServer {
	return &GRPCServer{
		address:     a,
		hub:         h,
		audit:       sinks,
		logger:      l.With("module", "grpc_server"),
		jwtSecret:   []byte(secretKey),
		idleTimeout: idle,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(s.accessTokenInterceptor)}
	if s.idleTimeout > 0 {
		opts = append(opts, grpc.KeepaliveParams(keepalive.ServerParameters{MaxConnectionIdle: s.idleTimeout}))
	}
	srv := grpc.NewServer(opts...)

	pb.RegisterRelayServer(srv, s)
	pb.RegisterAdminServer(srv, s)

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping gRPC server...")
			srv.GracefulStop()
		case <-stopped:
		}
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
