package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain_todo "github.com/hijjiri/todo-lists/internal/domain/todo"
)

const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultError    = "error"
)

// instrumentedStore は Store の各操作に span と metrics を付けるデコレータ。
type instrumentedStore struct {
	next    domain_todo.Store
	metrics *StoreMetrics
	tracer  trace.Tracer
	backend string
}

// InstrumentStore は next を包んだ Store を返す。backend は "memory" / "mysql" など。
func InstrumentStore(next domain_todo.Store, metrics *StoreMetrics, tracer trace.Tracer, backend string) domain_todo.Store {
	return &instrumentedStore{
		next:    next,
		metrics: metrics,
		tracer:  tracer,
		backend: backend,
	}
}

func (s *instrumentedStore) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	begin := time.Now()
	attrs = append(attrs, attribute.String("store.backend", s.backend))
	ctx, span := s.tracer.Start(ctx, "store."+op, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		result := resultOK
		var ve *domain_todo.ValidationError
		switch {
		case err == nil:
		case errors.As(err, &ve):
			result = resultRejected
			span.SetAttributes(attribute.String("validation.message", ve.Message))
		default:
			result = resultError
			span.RecordError(err)
			span.SetStatus(codes.Error, "store operation failed")
		}
		span.End()
		s.metrics.observe(op, result, time.Since(begin).Seconds())
	}
}

func (s *instrumentedStore) AllLists(ctx context.Context) ([]domain_todo.List, error) {
	ctx, done := s.start(ctx, "AllLists")
	lists, err := s.next.AllLists(ctx)
	done(err)
	return lists, err
}

func (s *instrumentedStore) FindList(ctx context.Context, id int64) (*domain_todo.List, bool, error) {
	ctx, done := s.start(ctx, "FindList", attribute.Int64("list.id", id))
	l, ok, err := s.next.FindList(ctx, id)
	done(err)
	return l, ok, err
}

func (s *instrumentedStore) CreateList(ctx context.Context, name string) (*domain_todo.List, error) {
	ctx, done := s.start(ctx, "CreateList")
	l, err := s.next.CreateList(ctx, name)
	done(err)
	return l, err
}

func (s *instrumentedStore) DeleteList(ctx context.Context, id int64) error {
	ctx, done := s.start(ctx, "DeleteList", attribute.Int64("list.id", id))
	err := s.next.DeleteList(ctx, id)
	done(err)
	return err
}

func (s *instrumentedStore) UpdateListName(ctx context.Context, id int64, name string) error {
	ctx, done := s.start(ctx, "UpdateListName", attribute.Int64("list.id", id))
	err := s.next.UpdateListName(ctx, id, name)
	done(err)
	return err
}

func (s *instrumentedStore) CreateNewTodo(ctx context.Context, listID int64, name string) (*domain_todo.Todo, error) {
	ctx, done := s.start(ctx, "CreateNewTodo", attribute.Int64("list.id", listID))
	t, err := s.next.CreateNewTodo(ctx, listID, name)
	done(err)
	return t, err
}

func (s *instrumentedStore) DeleteTodoFromList(ctx context.Context, listID, todoID int64) error {
	ctx, done := s.start(ctx, "DeleteTodoFromList", attribute.Int64("list.id", listID), attribute.Int64("todo.id", todoID))
	err := s.next.DeleteTodoFromList(ctx, listID, todoID)
	done(err)
	return err
}

func (s *instrumentedStore) UpdateTodoStatus(ctx context.Context, listID, todoID int64, completed bool) error {
	ctx, done := s.start(ctx, "UpdateTodoStatus",
		attribute.Int64("list.id", listID),
		attribute.Int64("todo.id", todoID),
		attribute.Bool("todo.completed", completed),
	)
	err := s.next.UpdateTodoStatus(ctx, listID, todoID, completed)
	done(err)
	return err
}

func (s *instrumentedStore) MarkAllTodosComplete(ctx context.Context, listID int64) error {
	ctx, done := s.start(ctx, "MarkAllTodosComplete", attribute.Int64("list.id", listID))
	err := s.next.MarkAllTodosComplete(ctx, listID)
	done(err)
	return err
}
