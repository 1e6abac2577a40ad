package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	domain_todo "github.com/hijjiri/todo-lists/internal/domain/todo"
)

func TestStore_CreateList_DistinctIDs(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	names := []string{"Groceries", "Work", "Home"}
	for _, n := range names {
		if _, err := s.CreateList(ctx, n); err != nil {
			t.Fatalf("CreateList(%q) returned error: %v", n, err)
		}
	}

	lists, err := s.AllLists(ctx)
	if err != nil {
		t.Fatalf("AllLists returned error: %v", err)
	}
	if len(lists) != len(names) {
		t.Fatalf("expected %d lists, got %d", len(names), len(lists))
	}

	seen := map[int64]bool{}
	for i, l := range lists {
		if l.Name != names[i] {
			t.Errorf("position %d: expected %q, got %q", i, names[i], l.Name)
		}
		if seen[l.ID] {
			t.Errorf("duplicate id %d", l.ID)
		}
		seen[l.ID] = true
		if l.Todos == nil || len(l.Todos) != 0 {
			t.Errorf("expected empty todos, got %#v", l.Todos)
		}
	}
}

func TestStore_FindList_NotFound(t *testing.T) {
	t.Parallel()

	s := NewStore()

	l, ok, err := s.FindList(context.Background(), 42)
	if err != nil {
		t.Fatalf("FindList returned error: %v", err)
	}
	if ok || l != nil {
		t.Errorf("expected not found, got %#v", l)
	}
}

func TestStore_CreateNewTodo_RoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	l, _ := s.CreateList(ctx, "Groceries")
	first, _ := s.CreateNewTodo(ctx, l.ID, "Milk")

	td, err := s.CreateNewTodo(ctx, l.ID, "X")
	if err != nil {
		t.Fatalf("CreateNewTodo returned error: %v", err)
	}
	if td.ID == first.ID {
		t.Errorf("expected fresh id, got %d twice", td.ID)
	}

	got, ok, _ := s.FindList(ctx, l.ID)
	if !ok {
		t.Fatal("expected list to exist")
	}
	found, ok := got.FindTodo(td.ID)
	if !ok {
		t.Fatalf("todo %d not found in %#v", td.ID, got.Todos)
	}
	if found.Name != "X" || found.Completed {
		t.Errorf("unexpected todo: %#v", found)
	}
}

func TestStore_CreateNewTodo_MissingList(t *testing.T) {
	t.Parallel()

	s := NewStore()

	td, err := s.CreateNewTodo(context.Background(), 7, "orphan")
	if err != nil {
		t.Fatalf("CreateNewTodo returned error: %v", err)
	}
	if td != nil {
		t.Errorf("expected nil todo for missing list, got %#v", td)
	}
}

func TestStore_TodoIDsScopedToList(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	a, _ := s.CreateList(ctx, "A")
	b, _ := s.CreateList(ctx, "B")

	ta, _ := s.CreateNewTodo(ctx, a.ID, "x")
	tb, _ := s.CreateNewTodo(ctx, b.ID, "y")

	if ta.ID != 1 || tb.ID != 1 {
		t.Errorf("expected both todos to get id 1, got %d and %d", ta.ID, tb.ID)
	}
}

func TestStore_DeleteList_Cascade(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	keep, _ := s.CreateList(ctx, "Keep")
	a, _ := s.CreateList(ctx, "A")
	t1, _ := s.CreateNewTodo(ctx, a.ID, "one")
	t2, _ := s.CreateNewTodo(ctx, a.ID, "two")

	if err := s.DeleteList(ctx, a.ID); err != nil {
		t.Fatalf("DeleteList returned error: %v", err)
	}

	lists, _ := s.AllLists(ctx)
	if len(lists) != 1 || lists[0].ID != keep.ID {
		t.Fatalf("expected only %q to remain, got %#v", "Keep", lists)
	}
	for _, l := range lists {
		if l.Name == "A" {
			t.Errorf("deleted list still reachable")
		}
		for _, td := range l.Todos {
			if td.ID == t1.ID || td.ID == t2.ID {
				t.Errorf("todo %d of deleted list still reachable", td.ID)
			}
		}
	}
}

func TestStore_DeleteList_Absent(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()
	s.CreateList(ctx, "A")

	if err := s.DeleteList(ctx, 99); err != nil {
		t.Fatalf("DeleteList returned error: %v", err)
	}
	lists, _ := s.AllLists(ctx)
	if len(lists) != 1 {
		t.Errorf("expected 1 list, got %d", len(lists))
	}
}

// 最大 ID の要素を消してから作ると、同じ ID が再発行される。
func TestStore_ReusesHighestIDAfterDelete(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	s.CreateList(ctx, "A")
	b, _ := s.CreateList(ctx, "B")
	s.DeleteList(ctx, b.ID)

	c, _ := s.CreateList(ctx, "C")
	if c.ID != b.ID {
		t.Errorf("expected reissued id %d, got %d", b.ID, c.ID)
	}

	l, _ := s.CreateList(ctx, "L")
	t1, _ := s.CreateNewTodo(ctx, l.ID, "one")
	t2, _ := s.CreateNewTodo(ctx, l.ID, "two")
	s.DeleteTodoFromList(ctx, l.ID, t2.ID)
	t3, _ := s.CreateNewTodo(ctx, l.ID, "three")
	if t3.ID != t2.ID || t3.ID == t1.ID {
		t.Errorf("expected todo id %d to be reissued, got %d", t2.ID, t3.ID)
	}
}

func TestStore_UpdateListName(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	l, _ := s.CreateList(ctx, "Old")
	s.CreateNewTodo(ctx, l.ID, "keep me")

	if err := s.UpdateListName(ctx, l.ID, "New"); err != nil {
		t.Fatalf("UpdateListName returned error: %v", err)
	}
	if err := s.UpdateListName(ctx, 999, "Ghost"); err != nil {
		t.Fatalf("UpdateListName on absent id returned error: %v", err)
	}

	got, _, _ := s.FindList(ctx, l.ID)
	if got.Name != "New" || got.ID != l.ID || len(got.Todos) != 1 {
		t.Errorf("unexpected list after rename: %#v", got)
	}
}

func TestStore_UpdateTodoStatus(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	l, _ := s.CreateList(ctx, "A")
	td, _ := s.CreateNewTodo(ctx, l.ID, "x")

	if err := s.UpdateTodoStatus(ctx, l.ID, td.ID, true); err != nil {
		t.Fatalf("UpdateTodoStatus returned error: %v", err)
	}
	got, _, _ := s.FindList(ctx, l.ID)
	if !got.Todos[0].Completed {
		t.Errorf("expected completed=true")
	}

	s.UpdateTodoStatus(ctx, l.ID, td.ID, false)
	got, _, _ = s.FindList(ctx, l.ID)
	if got.Todos[0].Completed {
		t.Errorf("expected completed=false")
	}

	// 存在しない ID は no-op
	if err := s.UpdateTodoStatus(ctx, l.ID, 99, true); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
	if err := s.UpdateTodoStatus(ctx, 99, td.ID, true); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
}

func TestStore_MarkAllTodosComplete_Idempotent(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	l, _ := s.CreateList(ctx, "A")
	s.CreateNewTodo(ctx, l.ID, "x")
	s.CreateNewTodo(ctx, l.ID, "y")

	s.MarkAllTodosComplete(ctx, l.ID)
	once, _, _ := s.FindList(ctx, l.ID)

	s.MarkAllTodosComplete(ctx, l.ID)
	twice, _, _ := s.FindList(ctx, l.ID)

	if fmt.Sprint(*once) != fmt.Sprint(*twice) {
		t.Errorf("state differs: %#v vs %#v", once, twice)
	}
	for _, td := range twice.Todos {
		if !td.Completed {
			t.Errorf("todo %d not completed", td.ID)
		}
	}

	empty, _ := s.CreateList(ctx, "Empty")
	if err := s.MarkAllTodosComplete(ctx, empty.ID); err != nil {
		t.Errorf("expected no error on empty list, got %v", err)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	l, _ := s.CreateList(ctx, "A")
	s.CreateNewTodo(ctx, l.ID, "x")

	got, _, _ := s.FindList(ctx, l.ID)
	got.Name = "mutated"
	got.Todos[0].Completed = true

	again, _, _ := s.FindList(ctx, l.ID)
	if again.Name != "A" || again.Todos[0].Completed {
		t.Errorf("caller mutation leaked into store: %#v", again)
	}
}

func TestStore_ConcurrentCreate(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.CreateList(ctx, fmt.Sprintf("list-%d", i))
		}(i)
	}
	wg.Wait()

	lists, _ := s.AllLists(ctx)
	seen := map[int64]bool{}
	for _, l := range lists {
		if seen[l.ID] {
			t.Fatalf("duplicate id %d", l.ID)
		}
		seen[l.ID] = true
	}
	if len(lists) != 50 {
		t.Errorf("expected 50 lists, got %d", len(lists))
	}
}

func TestStore_ConcurrentDuplicateCreate(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	var (
		wg         sync.WaitGroup
		created    atomic.Int32
		rejected   atomic.Int32
		unexpected atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateList(ctx, "Groceries")
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, domain_todo.ErrDuplicateName):
				rejected.Add(1)
			default:
				unexpected.Add(1)
			}
		}()
	}
	wg.Wait()

	if created.Load() != 1 || rejected.Load() != 19 || unexpected.Load() != 0 {
		t.Errorf("expected 1 created / 19 rejected, got %d / %d (other=%d)",
			created.Load(), rejected.Load(), unexpected.Load())
	}
	lists, _ := s.AllLists(ctx)
	if len(lists) != 1 {
		t.Errorf("expected exactly one list, got %d", len(lists))
	}
}

func TestStore_UpdateListName_Duplicate(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	a, _ := s.CreateList(ctx, "A")
	s.CreateList(ctx, "B")

	err := s.UpdateListName(ctx, a.ID, "B")
	if !errors.Is(err, domain_todo.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	var ve *domain_todo.ValidationError
	if !errors.As(err, &ve) || ve.Message != "List name must be unique." {
		t.Errorf("unexpected validation error: %#v", err)
	}

	// 自分自身の名前への更新は衝突扱いしない（DB の一意制約と同じ）
	if err := s.UpdateListName(ctx, a.ID, "A"); err != nil {
		t.Errorf("renaming to own name returned error: %v", err)
	}

	got, _, _ := s.FindList(ctx, a.ID)
	if got.Name != "A" {
		t.Errorf("name changed on rejected rename: %q", got.Name)
	}
}
