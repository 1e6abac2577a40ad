package grpcadapter

import (
	"context"

	"google.golang.org/grpc/metadata"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "request-id"

const mdRequestID = "x-request-id"

// ----- request_id -----

func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

// RequestIDFromContext は ctx に積まれた値を優先し、無ければ incoming metadata を見る。
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if s, ok := ctx.Value(ctxKeyRequestID).(string); ok && s != "" {
		return s, true
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	if v := md.Get(mdRequestID); len(v) > 0 && v[0] != "" {
		return v[0], true
	}
	return "", false
}
