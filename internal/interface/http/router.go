package httpadapter

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter は middleware を外側から順に積んだ http.Handler を返す。
// scoper が nil（memory store）のときはコネクションを確保しない。
func NewRouter(h *TodoHandler, logger *zap.Logger, timeout time.Duration, scoper ConnScoper) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := mux.NewRouter()
	r.Use(
		NewRequestIDMiddleware(),
		NewLoggingMiddleware(logger),
		NewRecoveryMiddleware(logger),
		NewTimeoutMiddleware(timeout),
		NewConnScopeMiddleware(scoper, logger),
	)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})

	h.Register(r)
	return r
}
