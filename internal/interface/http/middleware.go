package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const headerRequestID = "X-Request-ID"

// ConnScoper はリクエストの間だけ DB コネクションを確保する（rdb.TxManager が満たす）。
type ConnScoper interface {
	WithinConn(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewRequestIDMiddleware は X-Request-ID を引き継ぐか、無ければ採番する。
func NewRequestIDMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get(headerRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set(headerRequestID, rid)
			next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), rid)))
		})
	}
}

// NewLoggingMiddleware logs requests with method, path, status, duration and request_id.
func NewLoggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", m.Code),
				zap.Int64("bytes", m.Written),
				zap.Duration("duration", m.Duration),
			}
			if rid, ok := RequestIDFromContext(r.Context()); ok {
				fields = append(fields, zap.String("request_id", rid))
			}

			if m.Code >= http.StatusInternalServerError {
				logger.Error("http request", fields...)
			} else {
				logger.Info("http request", fields...)
			}
		})
	}
}

// NewRecoveryMiddleware は handler の panic を 500 に変換する。
func NewRecoveryMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered in http handler",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.ByteString("stacktrace", debug.Stack()),
					)
					writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternal})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// NewTimeoutMiddleware は各リクエストにタイムアウトを付与する。
// - timeout <= 0 の場合は何もしない
// - 既に ctx に deadline がある場合は「より短い方」を優先
func NewTimeoutMiddleware(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if dl, ok := r.Context().Deadline(); ok && time.Until(dl) <= timeout {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewConnScopeMiddleware はリクエスト開始時に DB コネクションを借り、
// 終了時（エラー・panic を含む）に必ず返す。scoper が nil なら何もしない。
func NewConnScopeMiddleware(scoper ConnScoper, logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if scoper == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := scoper.WithinConn(r.Context(), func(ctx context.Context) error {
				next.ServeHTTP(w, r.WithContext(ctx))
				return nil
			})
			if err != nil {
				logger.Error("failed to acquire db conn", zap.Error(err))
				status := http.StatusServiceUnavailable
				if errors.Is(err, context.DeadlineExceeded) {
					status = http.StatusGatewayTimeout
				}
				writeJSON(w, status, errorResponse{Error: msgInternal})
			}
		})
	}
}
