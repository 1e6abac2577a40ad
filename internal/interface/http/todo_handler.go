package httpadapter

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	todo_usecase "github.com/hijjiri/todo-lists/internal/usecase/todo"
)

type TodoHandler struct {
	uc     todo_usecase.Usecase
	logger *zap.Logger
}

func NewTodoHandler(uc todo_usecase.Usecase, logger *zap.Logger) *TodoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoHandler{uc: uc, logger: logger}
}

// Register はルート表を r に登録する。
func (h *TodoHandler) Register(r *mux.Router) {
	r.HandleFunc("/", h.Root).Methods(http.MethodGet)
	r.HandleFunc("/lists", h.Lists).Methods(http.MethodGet)
	r.HandleFunc("/lists", h.CreateList).Methods(http.MethodPost)
	r.HandleFunc("/lists/{id}", h.List).Methods(http.MethodGet)
	r.HandleFunc("/lists/{id}", h.RenameList).Methods(http.MethodPost)
	r.HandleFunc("/lists/{id}/destroy", h.DeleteList).Methods(http.MethodPost)
	r.HandleFunc("/lists/{id}/complete_all", h.CompleteAll).Methods(http.MethodPost)
	r.HandleFunc("/lists/{list_id}/todos", h.AddTodo).Methods(http.MethodPost)
	r.HandleFunc("/lists/{list_id}/todos/{id}", h.UpdateTodo).Methods(http.MethodPost)
	r.HandleFunc("/lists/{list_id}/todos/{id}/destroy", h.DeleteTodo).Methods(http.MethodPost)
}

func (h *TodoHandler) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/lists", http.StatusFound)
}

// --- Lists ---
func (h *TodoHandler) Lists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.uc.Lists(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listsResponse{Lists: lists})
}

func (h *TodoHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	l, err := h.uc.CreateList(r.Context(), r.FormValue("list_name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/lists/%d", l.ID))
	writeJSON(w, http.StatusCreated, listResponse{Message: "The list has been created.", List: l})
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", msgListNotFound)
	if !ok {
		return
	}
	l, err := h.uc.List(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{List: l})
}

func (h *TodoHandler) RenameList(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", msgListNotFound)
	if !ok {
		return
	}
	l, err := h.uc.RenameList(r.Context(), id, r.FormValue("list_name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Message: "The list has been updated.", List: l})
}

func (h *TodoHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", msgListNotFound)
	if !ok {
		return
	}
	if err := h.uc.DeleteList(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "The list has been deleted."})
}

func (h *TodoHandler) CompleteAll(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", msgListNotFound)
	if !ok {
		return
	}
	if err := h.uc.CompleteAll(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "All todos have been completed."})
}

// --- Todos ---
func (h *TodoHandler) AddTodo(w http.ResponseWriter, r *http.Request) {
	listID, ok := h.pathID(w, r, "list_id", msgListNotFound)
	if !ok {
		return
	}
	t, err := h.uc.AddTodo(r.Context(), listID, r.FormValue("todo"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, todoResponse{Message: "The todo was added.", Todo: t})
}

// UpdateTodo は completed=true のときだけ完了扱い（それ以外は未完了に戻す）。
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	listID, ok := h.pathID(w, r, "list_id", msgListNotFound)
	if !ok {
		return
	}
	todoID, ok := h.pathID(w, r, "id", msgTodoNotFound)
	if !ok {
		return
	}
	completed := r.FormValue("completed") == "true"
	if err := h.uc.SetTodoStatus(r.Context(), listID, todoID, completed); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "The todo has been updated."})
}

func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	listID, ok := h.pathID(w, r, "list_id", msgListNotFound)
	if !ok {
		return
	}
	todoID, ok := h.pathID(w, r, "id", msgTodoNotFound)
	if !ok {
		return
	}
	if err := h.uc.DeleteTodo(r.Context(), listID, todoID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "The todo has been deleted."})
}

// pathID は URL の ID を数値にする。数値でなければ notFound を添えて 404 を返す。
func (h *TodoHandler) pathID(w http.ResponseWriter, r *http.Request, key, notFound string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[key], 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFound})
		return 0, false
	}
	return id, true
}

func (h *TodoHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := toHTTPError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
