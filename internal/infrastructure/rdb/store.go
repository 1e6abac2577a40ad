package rdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	domain_todo "github.com/hijjiri/todo-lists/internal/domain/todo"
)

// Store は lists / todos の 2 テーブルに正規化して保存する Store 実装。
// ID は DB の採番（AUTO_INCREMENT / BIGSERIAL）に任せるので再利用されない。
type Store struct {
	db      *sql.DB
	dialect Dialect
	txMgr   *TxManager
	logger  *zap.Logger
}

var _ domain_todo.Store = (*Store)(nil)

func NewStore(db *sql.DB, dialect Dialect, txMgr *TxManager, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if txMgr == nil {
		txMgr = NewTxManager(db, logger)
	}
	return &Store{
		db:      db,
		dialect: dialect,
		txMgr:   txMgr,
		logger:  logger,
	}
}

// AllLists は List を全件読んだあと、List ごとに Todo を読み足す。
func (s *Store) AllLists(ctx context.Context) ([]domain_todo.List, error) {
	lists, err := s.queryLists(ctx, "SELECT id, name FROM lists ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("all lists: %w", err)
	}

	for i := range lists {
		todos, err := s.findTodosForList(ctx, lists[i].ID)
		if err != nil {
			return nil, fmt.Errorf("all lists: %w", err)
		}
		lists[i].Todos = todos
	}
	return lists, nil
}

func (s *Store) FindList(ctx context.Context, id int64) (*domain_todo.List, bool, error) {
	lists, err := s.queryLists(ctx, "SELECT id, name FROM lists WHERE id = ?", id)
	if err != nil {
		return nil, false, fmt.Errorf("find list: %w", err)
	}
	if len(lists) == 0 {
		return nil, false, nil
	}

	l := lists[0]
	todos, err := s.findTodosForList(ctx, l.ID)
	if err != nil {
		return nil, false, fmt.Errorf("find list: %w", err)
	}
	l.Todos = todos
	return &l, true, nil
}

func (s *Store) CreateList(ctx context.Context, name string) (*domain_todo.List, error) {
	id, _, err := s.insertReturningID(ctx, "INSERT INTO lists (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("create list: %w", translateNameErr(err))
	}

	return &domain_todo.List{
		ID:    id,
		Name:  name,
		Todos: []domain_todo.Todo{},
	}, nil
}

// DeleteList は子の todos → 親の lists の順で消す。
// 2 文は 1 つの Tx で実行し、途中で失敗したら両方ロールバックする。
func (s *Store) DeleteList(ctx context.Context, id int64) error {
	err := s.txMgr.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.exec(ctx, "DELETE FROM todos WHERE list_id = ?", id); err != nil {
			return err
		}
		if _, err := s.exec(ctx, "DELETE FROM lists WHERE id = ?", id); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

func (s *Store) UpdateListName(ctx context.Context, id int64, name string) error {
	if _, err := s.exec(ctx, "UPDATE lists SET name = ? WHERE id = ?", name, id); err != nil {
		return fmt.Errorf("update list name: %w", translateNameErr(err))
	}
	return nil
}

// CreateNewTodo は親 List が存在するときだけ INSERT される 1 文で書く。
// 親が無ければ 0 行挿入となり nil を返す（孤児 Todo を作らない）。
func (s *Store) CreateNewTodo(ctx context.Context, listID int64, name string) (*domain_todo.Todo, error) {
	id, ok, err := s.insertReturningID(ctx,
		"INSERT INTO todos (name, completed, list_id) SELECT ?, FALSE, id FROM lists WHERE id = ?",
		name,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	if !ok {
		return nil, nil
	}

	return &domain_todo.Todo{
		ID:        id,
		Name:      name,
		Completed: false,
	}, nil
}

func (s *Store) DeleteTodoFromList(ctx context.Context, listID, todoID int64) error {
	if _, err := s.exec(ctx, "DELETE FROM todos WHERE id = ? AND list_id = ?", todoID, listID); err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}

func (s *Store) UpdateTodoStatus(ctx context.Context, listID, todoID int64, completed bool) error {
	if _, err := s.exec(ctx,
		"UPDATE todos SET completed = ? WHERE id = ? AND list_id = ?",
		completed,
		todoID,
		listID,
	); err != nil {
		return fmt.Errorf("update todo status: %w", err)
	}
	return nil
}

func (s *Store) MarkAllTodosComplete(ctx context.Context, listID int64) error {
	if _, err := s.exec(ctx, "UPDATE todos SET completed = TRUE WHERE list_id = ?", listID); err != nil {
		return fmt.Errorf("mark all todos complete: %w", err)
	}
	return nil
}

// ---- 内部ヘルパ ----

// queryLists は lists の行を読み切ってから返す。
// 同じ Conn / Tx で続けて todos を引くので、rows を開いたままにしない。
func (s *Store) queryLists(ctx context.Context, query string, args ...any) ([]domain_todo.List, error) {
	q := s.prepare(query, args)

	lists := []domain_todo.List{}
	err := s.withRetry(ctx, s.readPolicy(ctx), func(ex execer) error {
		lists = lists[:0]

		rows, err := ex.QueryContext(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var l domain_todo.List
			if err := rows.Scan(&l.ID, &l.Name); err != nil {
				return err
			}
			lists = append(lists, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return lists, nil
}

func (s *Store) findTodosForList(ctx context.Context, listID int64) ([]domain_todo.Todo, error) {
	q := s.prepare("SELECT id, name, completed FROM todos WHERE list_id = ? ORDER BY id", []any{listID})

	todos := []domain_todo.Todo{}
	err := s.withRetry(ctx, s.readPolicy(ctx), func(ex execer) error {
		todos = todos[:0]

		rows, err := ex.QueryContext(ctx, q, listID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t domain_todo.Todo
			if err := rows.Scan(&t.ID, &t.Name, &t.Completed); err != nil {
				return err
			}
			todos = append(todos, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return todos, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q := s.prepare(query, args)

	var res sql.Result
	err := s.withRetry(ctx, s.writePolicy(ctx), func(ex execer) error {
		var err error
		res, err = ex.ExecContext(ctx, q, args...)
		return err
	})
	return res, err
}

// insertReturningID は INSERT して採番された ID を返す。
// 1 行も挿入されなかった場合は ok=false。
// PostgreSQL は LastInsertId を持たないので RETURNING を使う。
func (s *Store) insertReturningID(ctx context.Context, query string, args ...any) (id int64, ok bool, err error) {
	if s.dialect == Postgres {
		q := s.prepare(query+" RETURNING id", args)
		err = s.withRetry(ctx, s.writePolicy(ctx), func(ex execer) error {
			return ex.QueryRowContext(ctx, q, args...).Scan(&id)
		})
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, err
		}
		return id, true, nil
	}

	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if affected == 0 {
		return 0, false, nil
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// withRetry は試行ごとに ctx から実行先を選び直して fn を呼ぶ。
// リクエスト専用コネクションが ErrBadConn で閉じられたら、次の試行の前に借り直す。
func (s *Store) withRetry(ctx context.Context, policy RetryPolicy, fn func(ex execer) error) error {
	return doWithRetry(ctx, policy, func() error {
		err := fn(executorFrom(ctx, s.db))
		if err != nil && isBadConn(err) {
			if rerr := renewConn(ctx); rerr != nil {
				return rerr
			}
		}
		return err
	})
}

// prepare は方言に合わせてプレースホルダを書き換え、実行前に文とパラメータを記録する。
func (s *Store) prepare(query string, args []any) string {
	q := s.dialect.Rebind(query)
	s.logger.Info("sql",
		zap.String("stmt", q),
		zap.Any("params", args),
	)
	return q
}

func (s *Store) readPolicy(ctx context.Context) RetryPolicy {
	if _, ok := TxFromContext(ctx); ok {
		return noRetry
	}
	return DefaultReadRetry
}

func (s *Store) writePolicy(ctx context.Context) RetryPolicy {
	if _, ok := TxFromContext(ctx); ok {
		return noRetry
	}
	return DefaultWriteRetry
}
