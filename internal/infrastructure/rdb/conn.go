package rdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Open は DB を開き、つながるまで ping をリトライする。
func Open(ctx context.Context, d Dialect, dsn string, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := pingWithRetry(ctx, db, logger, 20, 3*time.Second); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func pingWithRetry(ctx context.Context, db *sql.DB, logger *zap.Logger, maxAttempts int, interval time.Duration) error {
	for i := 1; i <= maxAttempts; i++ {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		logger.Warn("failed to ping db",
			zap.Int("attempt", i),
			zap.Int("maxAttempts", maxAttempts),
			zap.Error(err),
		)
		if i == maxAttempts {
			break
		}
		if err := sleepWithContext(ctx, interval); err != nil {
			return err
		}
	}
	return fmt.Errorf("failed to ping db after %d attempts", maxAttempts)
}

// context にぶら下げる用のキー
type connKey struct{}

// scopedConn はリクエスト専用コネクションの入れ物。
// 接続が壊れたときに同じ ctx のまま差し替えられるよう、ポインタで ctx に載せる。
// 1 リクエスト（1 goroutine）からしか触らない前提なのでロックは持たない。
type scopedConn struct {
	db   *sql.DB
	conn *sql.Conn
}

func withConn(ctx context.Context, sc *scopedConn) context.Context {
	return context.WithValue(ctx, connKey{}, sc)
}

// ConnFromContext は WithinConn が貼ったリクエスト専用コネクションを取り出す。
func ConnFromContext(ctx context.Context) (*sql.Conn, bool) {
	sc, ok := ctx.Value(connKey{}).(*scopedConn)
	if !ok {
		return nil, false
	}
	return sc.conn, true
}

// renewConn は ctx のリクエスト専用コネクションを捨て、プールから借り直す。
// database/sql は ErrBadConn を返した *sql.Conn を閉じてしまうので、
// 再試行の前に呼ばないと同じ死んだコネクションで失敗し続ける。
// Tx の中（Tx はコネクションに紐づく）と、コネクションが載っていない ctx では何もしない。
func renewConn(ctx context.Context) error {
	if _, ok := TxFromContext(ctx); ok {
		return nil
	}
	sc, ok := ctx.Value(connKey{}).(*scopedConn)
	if !ok {
		return nil
	}

	_ = sc.conn.Close()

	c, err := sc.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("reacquire conn: %w", err)
	}
	sc.conn = c
	return nil
}

// execer は *sql.DB / *sql.Conn / *sql.Tx に共通のメソッド。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// executorFrom は Tx > Conn > プール の順に、ctx に合った実行先を選ぶ。
func executorFrom(ctx context.Context, db *sql.DB) execer {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	if c, ok := ConnFromContext(ctx); ok {
		return c
	}
	return db
}
