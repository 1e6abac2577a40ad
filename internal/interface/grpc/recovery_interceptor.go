package grpcadapter

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// recoverToStatus は panic をログに残し、err を Internal に差し替える。defer から呼ぶ。
func recoverToStatus(logger *zap.Logger, kind, method string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	logger.Error("panic recovered in "+kind+" handler",
		zap.Any("panic", r),
		zap.String("method", method),
		zap.ByteString("stacktrace", debug.Stack()),
	)
	*err = status.Error(codes.Internal, "internal error")
}

// Unary 用 Recovery interceptor
func NewRecoveryUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		defer recoverToStatus(logger, "unary", info.FullMethod, &err)
		return handler(ctx, req)
	}
}

// Streaming 用 Recovery interceptor
func NewRecoveryStreamInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		defer recoverToStatus(logger, "stream", info.FullMethod, &err)
		return handler(srv, ss)
	}
}
