package rdb

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS lists (
		id   BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		UNIQUE KEY uq_lists_name (name)
	) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin`,
	`CREATE TABLE IF NOT EXISTS todos (
		id        BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name      VARCHAR(100) NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		list_id   BIGINT NOT NULL,
		KEY idx_todos_list_id (list_id),
		CONSTRAINT fk_todos_list FOREIGN KEY (list_id) REFERENCES lists (id)
	) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS lists (
		id   BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS todos (
		id        BIGSERIAL PRIMARY KEY,
		name      VARCHAR(100) NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		list_id   BIGINT NOT NULL REFERENCES lists (id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_todos_list_id ON todos (list_id)`,
}

// EnsureSchema は lists / todos テーブルが無ければ作る。
// 名前の一意性は大文字小文字を区別する（MySQL は _bin 照合順序で揃える）。
func EnsureSchema(ctx context.Context, db *sql.DB, d Dialect, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	stmts := mysqlSchema
	if d == Postgres {
		stmts = postgresSchema
	}

	for _, stmt := range stmts {
		logger.Info("ensure schema", zap.String("dialect", string(d)), zap.String("stmt", stmt))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
