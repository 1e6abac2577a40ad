package todo

import "context"

// Store は List / Todo の永続化を抽象化するインターフェース。
// memory（プロセス内）と rdb（MySQL / PostgreSQL）の 2 実装があり、
// どちらも同じ意味論を守る。
//
// 対象が存在しない場合の更新系はエラーではなく no-op。
type Store interface {
	// ID 昇順で、Todos まで埋めた全 List を返す。
	AllLists(ctx context.Context) ([]List, error)
	// 見つからなければ ok=false（エラーではない）。
	FindList(ctx context.Context, id int64) (l *List, ok bool, err error)
	// name はバリデーション済みであること。
	CreateList(ctx context.Context, name string) (*List, error)
	// List と所属 Todo をまとめて削除する。
	DeleteList(ctx context.Context, id int64) error
	UpdateListName(ctx context.Context, id int64, name string) error
	// 親 List が無ければ nil を返す（孤児 Todo は作らない）。
	CreateNewTodo(ctx context.Context, listID int64, name string) (*Todo, error)
	DeleteTodoFromList(ctx context.Context, listID, todoID int64) error
	UpdateTodoStatus(ctx context.Context, listID, todoID int64, completed bool) error
	// 冪等。Todo が 0 件でもエラーにしない。
	MarkAllTodosComplete(ctx context.Context, listID int64) error
}
