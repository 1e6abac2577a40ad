package todo

import "slices"

// IsListComplete は「Todo が 1 件以上あり、すべて完了」のときだけ true。
// 空の List は完了扱いにしない。
func IsListComplete(l List) bool {
	return TodosCount(l) > 0 && TodosRemainingCount(l) == 0
}

func TodosCount(l List) int {
	return len(l.Todos)
}

func TodosRemainingCount(l List) int {
	n := 0
	for _, t := range l.Todos {
		if !t.Completed {
			n++
		}
	}
	return n
}

// SortLists は未完了を先、完了を後ろに並べ替えた新しいスライスを返す。
// 各グループ内の相対順序は保つ（安定分割）。
func SortLists(lists []List) []List {
	out := slices.Clone(lists)
	slices.SortStableFunc(out, func(a, b List) int {
		return rank(IsListComplete(a)) - rank(IsListComplete(b))
	})
	return out
}

// SortTodos は SortLists の Todo 版。
func SortTodos(todos []Todo) []Todo {
	out := slices.Clone(todos)
	slices.SortStableFunc(out, func(a, b Todo) int {
		return rank(a.Completed) - rank(b.Completed)
	})
	return out
}

func rank(completed bool) int {
	if completed {
		return 1
	}
	return 0
}
