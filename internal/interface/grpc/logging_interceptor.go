package grpcadapter

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

func requestFields(ctx context.Context, method string, duration time.Duration, err error) []zap.Field {
	fields := []zap.Field{
		zap.String("method", method),
		zap.Duration("duration", duration),
		zap.String("code", status.Code(err).String()),
	}
	if rid, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, zap.String("request_id", rid))
	}
	return fields
}

// NewLoggingUnaryInterceptor logs unary RPCs with method, duration, code and request_id(あれば).
func NewLoggingUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		fields := requestFields(ctx, info.FullMethod, time.Since(start), err)
		if err != nil {
			logger.Error("gRPC unary request", append(fields, zap.Error(err))...)
		} else {
			logger.Info("gRPC unary request", fields...)
		}

		return resp, err
	}
}

// NewLoggingStreamInterceptor は health Watch など stream RPC 用。
func NewLoggingStreamInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()

		err := handler(srv, ss)

		fields := requestFields(ss.Context(), info.FullMethod, time.Since(start), err)
		if err != nil {
			logger.Error("gRPC stream request", append(fields, zap.Error(err))...)
		} else {
			logger.Info("gRPC stream request", fields...)
		}

		return err
	}
}
