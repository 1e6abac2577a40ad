package grpcadapter

import (
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewServer は interceptor・otel・health・reflection を組み込んだ gRPC サーバを返す。
func NewServer(logger *zap.Logger, timeout time.Duration) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = zap.NewNop()
	}

	unaryInterceptors := []grpc.UnaryServerInterceptor{
		NewRecoveryUnaryInterceptor(logger),
		NewTimeoutUnaryInterceptor(logger, timeout),
		NewLoggingUnaryInterceptor(logger),
	}

	streamInterceptors := []grpc.StreamServerInterceptor{
		NewRecoveryStreamInterceptor(logger),
		NewLoggingStreamInterceptor(logger),
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unaryInterceptors...),
		grpc.ChainStreamInterceptor(streamInterceptors...),
	)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	reflection.Register(srv)

	return srv, healthSrv
}
