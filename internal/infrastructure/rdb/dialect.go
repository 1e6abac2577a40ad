package rdb

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Dialect は接続先 RDB の方言。database/sql に登録されたドライバ名と同じ値を持つ。
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case MySQL:
		return MySQL, nil
	case Postgres, "postgresql", "pg":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unknown db driver %q", s)
	}
}

func (d Dialect) DriverName() string {
	return string(d)
}

// Rebind は "?" プレースホルダを方言に合わせて書き換える。
// PostgreSQL は $1, $2 ... 形式。クエリ内に ? リテラルは書かない前提。
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ConnParams は「名前付き DB」へ接続するときの部品。
type ConnParams struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// BuildDSN は ConnParams から方言ごとの DSN を組み立てる。
func BuildDSN(d Dialect, p ConnParams) string {
	switch d {
	case Postgres:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			p.Host,
			p.Port,
			p.User,
			p.Password,
			p.Name,
		)
	default:
		cfg := mysql.NewConfig()
		cfg.User = p.User
		cfg.Passwd = p.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(p.Host, p.Port)
		cfg.DBName = p.Name
		cfg.ParseTime = true
		cfg.Timeout = 5 * time.Second
		cfg.Collation = "utf8mb4_bin"
		return cfg.FormatDSN()
	}
}
