// internal/infrastructure/memory/store.go
package memory

import (
	"context"
	"sync"

	domain_todo "github.com/hijjiri/todo-lists/internal/domain/todo"
)

// Store はプロセス内だけで完結する Store 実装。再起動で中身は消える。
// ID は「スコープ内の最大 ID + 1」で採番するので、最大 ID の要素を
// 消した直後に作ると同じ ID が再発行される（テストで固定している挙動）。
type Store struct {
	mu    sync.Mutex
	lists []domain_todo.List
}

var _ domain_todo.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{}
}

func (s *Store) AllLists(ctx context.Context) ([]domain_todo.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain_todo.List, 0, len(s.lists))
	for _, l := range s.lists {
		out = append(out, l.Clone())
	}
	return out, nil
}

func (s *Store) FindList(ctx context.Context, id int64) (*domain_todo.List, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.find(id)
	if !ok {
		return nil, false, nil
	}
	c := l.Clone()
	return &c, true, nil
}

func (s *Store) CreateList(ctx context.Context, name string) (*domain_todo.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// ListService のチェックと挿入の間に同名が入り込むことがあるので、ロック下で見直す
	if s.nameTaken(name, 0) {
		return nil, domain_todo.NewDuplicateNameError()
	}

	l := domain_todo.List{
		ID:    nextListID(s.lists),
		Name:  name,
		Todos: []domain_todo.Todo{},
	}
	s.lists = append(s.lists, l)

	c := l.Clone()
	return &c, nil
}

func (s *Store) DeleteList(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Todos は List が持っているので、List を外せばまとめて消える
	for i := range s.lists {
		if s.lists[i].ID == id {
			s.lists = append(s.lists[:i], s.lists[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) UpdateListName(ctx context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.find(id)
	if !ok {
		return nil
	}
	if s.nameTaken(name, id) {
		return domain_todo.NewDuplicateNameError()
	}
	l.Name = name
	return nil
}

func (s *Store) CreateNewTodo(ctx context.Context, listID int64, name string) (*domain_todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.find(listID)
	if !ok {
		return nil, nil
	}

	t := domain_todo.Todo{
		ID:        nextTodoID(l.Todos),
		Name:      name,
		Completed: false,
	}
	l.Todos = append(l.Todos, t)
	return &t, nil
}

func (s *Store) DeleteTodoFromList(ctx context.Context, listID, todoID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.find(listID)
	if !ok {
		return nil
	}
	for i := range l.Todos {
		if l.Todos[i].ID == todoID {
			l.Todos = append(l.Todos[:i], l.Todos[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) UpdateTodoStatus(ctx context.Context, listID, todoID int64, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.find(listID)
	if !ok {
		return nil
	}
	if t, ok := l.FindTodo(todoID); ok {
		t.Completed = completed
	}
	return nil
}

func (s *Store) MarkAllTodosComplete(ctx context.Context, listID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.find(listID)
	if !ok {
		return nil
	}
	for i := range l.Todos {
		l.Todos[i].Completed = true
	}
	return nil
}

// find は内部データへのポインタを返す。mu を取った状態で呼ぶこと。
func (s *Store) find(id int64) (*domain_todo.List, bool) {
	for i := range s.lists {
		if s.lists[i].ID == id {
			return &s.lists[i], true
		}
	}
	return nil, false
}

func nextListID(lists []domain_todo.List) int64 {
	var max int64
	for _, l := range lists {
		if l.ID > max {
			max = l.ID
		}
	}
	return max + 1
}

func nextTodoID(todos []domain_todo.Todo) int64 {
	var max int64
	for _, t := range todos {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// nameTaken は exceptID 以外の List が name を使っているかを返す。
func (s *Store) nameTaken(name string, exceptID int64) bool {
	for i := range s.lists {
		if s.lists[i].ID != exceptID && s.lists[i].Name == name {
			return true
		}
	}
	return false
}
