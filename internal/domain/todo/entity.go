package todo

import (
	"errors"
)

// List は Todo を束ねる集約ルート。Todos は List が排他的に所有する。
type List struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Todos []Todo `json:"todos"`
}

// Todo は 1 つの List にだけ属する作業項目。ID は親 List の中でのみ一意。
type Todo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

var (
	// ID が 0 以下など不正なときに使う共通エラー。
	ErrInvalidID = errors.New("id must be positive")
)

// Clone は Todos まで含めたディープコピーを返す。
// nil の Todos は空スライスに揃える（JSON で null にしないため）。
func (l List) Clone() List {
	todos := make([]Todo, len(l.Todos))
	copy(todos, l.Todos)
	l.Todos = todos
	return l
}

// FindTodo は ID が一致する Todo を返す。
func (l *List) FindTodo(id int64) (*Todo, bool) {
	for i := range l.Todos {
		if l.Todos[i].ID == id {
			return &l.Todos[i], true
		}
	}
	return nil, false
}

// ValidateID は ID まわりの共通バリデーション。
func ValidateID(id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return nil
}
