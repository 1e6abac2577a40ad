package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	domain_todo "github.com/hijjiri/todo-lists/internal/domain/todo"
	"github.com/hijjiri/todo-lists/internal/infrastructure/memory"
	todo_usecase "github.com/hijjiri/todo-lists/internal/usecase/todo"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	uc := todo_usecase.New(memory.NewStore(), zap.NewNop())
	return NewRouter(NewTodoHandler(uc, zap.NewNop()), zap.NewNop(), time.Second, nil)
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return v
}

func TestRoot_RedirectsToLists(t *testing.T) {
	t.Parallel()

	rec := get(t, newTestRouter(t), "/")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/lists" {
		t.Errorf("expected redirect to /lists, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestCreateList_DuplicateRejected(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	rec := postForm(t, h, "/lists", url.Values{"list_name": {"Groceries"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[listResponse](t, rec)
	if created.Message != "The list has been created." || created.List.Name != "Groceries" {
		t.Errorf("unexpected response: %#v", created)
	}
	if rec.Header().Get(headerRequestID) == "" {
		t.Errorf("expected request id header")
	}

	rec = postForm(t, h, "/lists", url.Values{"list_name": {"Groceries"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Error != "List name must be unique." {
		t.Errorf("unexpected error message %q", got.Error)
	}

	lists := decode[listsResponse](t, get(t, h, "/lists"))
	if len(lists.Lists) != 1 {
		t.Errorf("expected 1 list, got %d", len(lists.Lists))
	}
}

func TestList_NotFound(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	for _, path := range []string{"/lists/99", "/lists/abc"} {
		rec := get(t, h, path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
			continue
		}
		if got := decode[errorResponse](t, rec); got.Error != msgListNotFound {
			t.Errorf("%s: unexpected error %q", path, got.Error)
		}
	}
}

func TestTodoRoutes_BadIDMessages(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	created := decode[listResponse](t, postForm(t, h, "/lists", url.Values{"list_name": {"Home"}}))
	base := "/lists/" + itoa(created.List.ID)

	cases := []struct {
		path string
		want string
	}{
		{base + "/todos/abc", msgTodoNotFound},
		{base + "/todos/abc/destroy", msgTodoNotFound},
		{"/lists/abc/todos/1", msgListNotFound},
		{"/lists/abc/todos/1/destroy", msgListNotFound},
	}
	for _, tc := range cases {
		rec := postForm(t, h, tc.path, url.Values{"completed": {"true"}})
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", tc.path, rec.Code)
			continue
		}
		if got := decode[errorResponse](t, rec); got.Error != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.path, tc.want, got.Error)
		}
	}
}

func TestTodoFlow(t *testing.T) {
	t.Parallel()

	h := newTestRouter(t)

	created := decode[listResponse](t, postForm(t, h, "/lists", url.Values{"list_name": {"Home"}}))
	base := "/lists/" + itoa(created.List.ID)

	rec := postForm(t, h, base+"/todos", url.Values{"todo": {""}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty todo, got %d", rec.Code)
	}

	rec = postForm(t, h, base+"/todos", url.Values{"todo": {"Sweep"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	added := decode[todoResponse](t, rec)
	if added.Todo.Completed {
		t.Errorf("new todo must not be completed")
	}

	rec = postForm(t, h, base+"/todos/"+itoa(added.Todo.ID), url.Values{"completed": {"true"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	got := decode[listResponse](t, get(t, h, base))
	if len(got.List.Todos) != 1 || !got.List.Todos[0].Completed {
		t.Errorf("expected completed todo, got %#v", got.List.Todos)
	}

	rec = postForm(t, h, base, url.Values{"list_name": {"House"}})
	if rec.Code != http.StatusOK || decode[listResponse](t, rec).List.Name != "House" {
		t.Errorf("rename failed: %d", rec.Code)
	}

	rec = postForm(t, h, base+"/complete_all", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("complete_all: expected 200, got %d", rec.Code)
	}

	rec = postForm(t, h, base+"/todos/"+itoa(added.Todo.ID)+"/destroy", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete todo: expected 200, got %d", rec.Code)
	}

	rec = postForm(t, h, base+"/destroy", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete list: expected 200, got %d", rec.Code)
	}
	if rec := get(t, h, base); rec.Code != http.StatusNotFound {
		t.Errorf("expected deleted list to be gone, got %d", rec.Code)
	}
}

func TestToHTTPError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
	}{
		{domain_todo.ValidateTodoName(""), http.StatusUnprocessableEntity},
		{todo_usecase.ErrListNotFound, http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("dial tcp 10.0.0.1:3306: connect: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, msg := toHTTPError(tc.err)
		if status != tc.status {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.status, status)
		}
		if status == http.StatusInternalServerError && msg != msgInternal {
			t.Errorf("internal detail leaked: %q", msg)
		}
	}
}

type fakeScoper struct {
	acquired int
	released int
}

func (f *fakeScoper) WithinConn(ctx context.Context, fn func(ctx context.Context) error) error {
	f.acquired++
	defer func() { f.released++ }()
	return fn(ctx)
}

func TestConnScope_ReleasedOnPanic(t *testing.T) {
	t.Parallel()

	scoper := &fakeScoper{}

	r := mux.NewRouter()
	r.Use(NewRecoveryMiddleware(zap.NewNop()), NewConnScopeMiddleware(scoper, zap.NewNop()))
	r.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if scoper.acquired != 1 || scoper.released != 1 {
		t.Errorf("expected acquire/release once, got %d/%d", scoper.acquired, scoper.released)
	}
}

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	t.Parallel()

	var hasDeadline bool
	h := NewTimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !hasDeadline {
		t.Error("expected request context to carry a deadline")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
