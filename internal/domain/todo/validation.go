package todo

import (
	"errors"
	"unicode/utf8"
)

const (
	MinNameLength = 1
	MaxNameLength = 100
)

// ---- ドメインエラー（sentinel error） ----

var (
	// 名前の長さが [1,100] に収まらないとき。
	ErrInvalidLength = errors.New("name length out of range")

	// 同名の List がすでに存在するとき。
	ErrDuplicateName = errors.New("list name already exists")
)

// ValidationError はユーザーにそのまま見せるメッセージを持つ入力エラー。
// システム障害ではないのでログには error として出さない。
type ValidationError struct {
	Kind    error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// errors.Is(err, ErrInvalidLength) のように種別で判定できるようにする。
func (e *ValidationError) Is(target error) bool { return e.Kind == target }

func (e *ValidationError) Unwrap() error { return e.Kind }

// ValidateListName は List 名の長さと一意性をチェックする。
// existing は呼び出し時点のスナップショット（並行作成との競合は許容）。
func ValidateListName(name string, existing []List) error {
	if !validLength(name) {
		return &ValidationError{
			Kind:    ErrInvalidLength,
			Message: "List name must be between 1 and 100 characters.",
		}
	}
	for _, l := range existing {
		if l.Name == name {
			return NewDuplicateNameError()
		}
	}
	return nil
}

// NewDuplicateNameError は一意制約違反をストレージ側で検知したときにも使う。
func NewDuplicateNameError() error {
	return &ValidationError{
		Kind:    ErrDuplicateName,
		Message: "List name must be unique.",
	}
}

// ValidateTodoName は Todo 名の長さだけをチェックする（一意性は問わない）。
func ValidateTodoName(name string) error {
	if !validLength(name) {
		return &ValidationError{
			Kind:    ErrInvalidLength,
			Message: "Todo must be between 1 and 100 characters.",
		}
	}
	return nil
}

// 文字数はバイト数ではなく rune 数で数える。
func validLength(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= MinNameLength && n <= MaxNameLength
}
