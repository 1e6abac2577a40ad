package todo_usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	domain_todo "github.com/hijjiri/todo-lists/internal/domain/todo"
)

// ===== エラー定数（Handler側からも使う） =====

var (
	ErrListNotFound = errors.New("list not found")
)

// ===== 外部に公開する Usecase インターフェース =====

// Usecase は ListService。どの Store が有効でも同じバリデーションを通してから委譲する。
type Usecase interface {
	Lists(ctx context.Context) ([]domain_todo.List, error)
	List(ctx context.Context, id int64) (*domain_todo.List, error)
	CreateList(ctx context.Context, name string) (*domain_todo.List, error)
	RenameList(ctx context.Context, id int64, name string) (*domain_todo.List, error)
	DeleteList(ctx context.Context, id int64) error
	AddTodo(ctx context.Context, listID int64, name string) (*domain_todo.Todo, error)
	DeleteTodo(ctx context.Context, listID, todoID int64) error
	SetTodoStatus(ctx context.Context, listID, todoID int64, completed bool) error
	CompleteAll(ctx context.Context, listID int64) error
}

// ===== 実装 =====

type usecase struct {
	store  domain_todo.Store
	logger *zap.Logger
}

func New(store domain_todo.Store, logger *zap.Logger) Usecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &usecase{
		store:  store,
		logger: logger,
	}
}

// Lists は未完了の List を先頭にして返す。
func (u *usecase) Lists(ctx context.Context) ([]domain_todo.List, error) {
	lists, err := u.store.AllLists(ctx)
	if err != nil {
		return nil, err
	}
	return domain_todo.SortLists(lists), nil
}

// List は 1 件取得。Todo は未完了を先頭に並べる。
func (u *usecase) List(ctx context.Context, id int64) (*domain_todo.List, error) {
	l, err := u.loadList(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Todos = domain_todo.SortTodos(l.Todos)
	return l, nil
}

// CreateList は「その時点の全 List」に対して名前をチェックしてから作る。
// チェックと作成の間の競合は許容する（DB 側は一意制約でも弾く）。
func (u *usecase) CreateList(ctx context.Context, name string) (*domain_todo.List, error) {
	name = strings.TrimSpace(name)

	lists, err := u.store.AllLists(ctx)
	if err != nil {
		return nil, err
	}
	if err := domain_todo.ValidateListName(name, lists); err != nil {
		u.logger.Info("list name rejected", zap.String("name", name), zap.String("reason", err.Error()))
		return nil, err
	}

	l, err := u.store.CreateList(ctx, name)
	if err != nil {
		return nil, err
	}
	u.logger.Info("list created", zap.Int64("list_id", l.ID))
	return l, nil
}

// RenameList は自分自身も含めて一意性を見る（同名へのリネームも重複扱い）。
func (u *usecase) RenameList(ctx context.Context, id int64, name string) (*domain_todo.List, error) {
	name = strings.TrimSpace(name)

	l, err := u.loadList(ctx, id)
	if err != nil {
		return nil, err
	}

	lists, err := u.store.AllLists(ctx)
	if err != nil {
		return nil, err
	}
	if err := domain_todo.ValidateListName(name, lists); err != nil {
		u.logger.Info("list name rejected", zap.Int64("list_id", id), zap.String("reason", err.Error()))
		return l, err
	}

	if err := u.store.UpdateListName(ctx, id, name); err != nil {
		return l, err
	}
	l.Name = name
	return l, nil
}

func (u *usecase) DeleteList(ctx context.Context, id int64) error {
	if _, err := u.loadList(ctx, id); err != nil {
		return err
	}
	if err := u.store.DeleteList(ctx, id); err != nil {
		return err
	}
	u.logger.Info("list deleted", zap.Int64("list_id", id))
	return nil
}

func (u *usecase) AddTodo(ctx context.Context, listID int64, name string) (*domain_todo.Todo, error) {
	name = strings.TrimSpace(name)

	if _, err := u.loadList(ctx, listID); err != nil {
		return nil, err
	}
	if err := domain_todo.ValidateTodoName(name); err != nil {
		return nil, err
	}

	t, err := u.store.CreateNewTodo(ctx, listID, name)
	if err != nil {
		return nil, err
	}
	// 確認後に別リクエストで消された
	if t == nil {
		return nil, ErrListNotFound
	}
	return t, nil
}

// DeleteTodo は存在しない Todo なら何もしない。
func (u *usecase) DeleteTodo(ctx context.Context, listID, todoID int64) error {
	if _, err := u.loadList(ctx, listID); err != nil {
		return err
	}
	return u.store.DeleteTodoFromList(ctx, listID, todoID)
}

func (u *usecase) SetTodoStatus(ctx context.Context, listID, todoID int64, completed bool) error {
	if _, err := u.loadList(ctx, listID); err != nil {
		return err
	}
	return u.store.UpdateTodoStatus(ctx, listID, todoID, completed)
}

func (u *usecase) CompleteAll(ctx context.Context, listID int64) error {
	if _, err := u.loadList(ctx, listID); err != nil {
		return err
	}
	return u.store.MarkAllTodosComplete(ctx, listID)
}

func (u *usecase) loadList(ctx context.Context, id int64) (*domain_todo.List, error) {
	if err := domain_todo.ValidateID(id); err != nil {
		return nil, ErrListNotFound
	}

	l, ok, err := u.store.FindList(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrListNotFound
	}
	return l, nil
}
