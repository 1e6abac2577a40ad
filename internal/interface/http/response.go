package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	domain_todo "github.com/hijjiri/todo-lists/internal/domain/todo"
	todo_usecase "github.com/hijjiri/todo-lists/internal/usecase/todo"
)

const (
	msgInternal     = "internal error"
	msgTimeout      = "request timeout"
	msgListNotFound = "The specified list was not found."
	msgTodoNotFound = "The specified todo was not found."
)

// flash メッセージは message / error として返す。
type errorResponse struct {
	Error string `json:"error"`
}

type listsResponse struct {
	Lists []domain_todo.List `json:"lists"`
}

type listResponse struct {
	Message string            `json:"message,omitempty"`
	List    *domain_todo.List `json:"list"`
}

type todoResponse struct {
	Message string            `json:"message"`
	Todo    *domain_todo.Todo `json:"todo"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// --- error mapper ---
func toHTTPError(err error) (int, string) {
	var ve *domain_todo.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, ve.Message

	case errors.Is(err, todo_usecase.ErrListNotFound):
		return http.StatusNotFound, msgListNotFound

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, msgTimeout

	default:
		// Internal詳細はログ側にだけ残す
		return http.StatusInternalServerError, msgInternal
	}
}
