package rdb

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	domain_todo "github.com/hijjiri/todo-lists/internal/domain/todo"
)

const (
	mysqlErrDupEntry  = 1062
	pgUniqueViolation = "23505"
)

// translateNameErr は lists.name の一意制約違反をドメインの DuplicateName に寄せる。
// ListService の事前チェックをすり抜けた同時作成はここで拾う。
func translateNameErr(err error) error {
	if isUniqueViolation(err) {
		return domain_todo.NewDuplicateNameError()
	}
	return err
}

func isUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlErrDupEntry {
		return true
	}
	var pe *pq.Error
	if errors.As(err, &pe) && pe.Code == pgUniqueViolation {
		return true
	}
	return false
}
