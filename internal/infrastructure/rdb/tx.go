package rdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// context にぶら下げる用のキー
type txKey struct{}

// ctx に *sql.Tx を埋め込む（外からは使わない想定なので小文字）
func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// Store 側で「この ctx に Tx がぶら下がっているか？」を見るためのヘルパ
func TxFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// TxManager は「この DB でコネクション / トランザクションを貼る」ための小さなラッパ
type TxManager struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewTxManager(db *sql.DB, logger *zap.Logger) *TxManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TxManager{
		db:     db,
		logger: logger,
	}
}

// WithinConn はプールからコネクションを 1 本借り、fn の間だけ ctx に載せる。
// fn が error / panic で抜けても必ず返却する。
func (m *TxManager) WithinConn(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ConnFromContext(ctx); ok {
		return fn(ctx)
	}

	c, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	// 途中で張り替えられることがあるので、返すのはその時点の conn
	sc := &scopedConn{db: m.db, conn: c}
	defer func() {
		if err := sc.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			m.logger.Warn("failed to release conn", zap.Error(err))
		}
	}()

	return fn(withConn(ctx, sc))
}

// WithinTx は「ctx を引き継いだトランザクション」を開始し、fn をその中で実行する。
// fn 内では、ctx から Tx が見えるようになる（Store 側で自動的に切り替え）。
// すでに Tx の中なら、そのまま相乗りする。
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	var tx *sql.Tx
	if c, ok := ConnFromContext(ctx); ok {
		tx, err = c.BeginTx(ctx, nil)
	} else {
		tx, err = m.db.BeginTx(ctx, nil)
	}
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				m.logger.Error("failed to rollback tx", zap.Error(rbErr))
			}
			panic(p)
		}
	}()

	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("failed to rollback tx", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}
