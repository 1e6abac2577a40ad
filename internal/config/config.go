// Package config はプロセス起動時の設定を組み立てる。
// 優先順位: デフォルト < TOML ファイル (TODO_CONFIG) < 環境変数。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreMemory   = "memory"
	StoreDatabase = "database"
)

type DBConfig struct {
	Driver   string `toml:"driver"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	// 本番では接続文字列をまるごと環境変数 (DATABASE_URL) でもらう
	URL     string `toml:"url"`
	Migrate bool   `toml:"migrate"`
}

type Config struct {
	AppEnv      string   `toml:"app_env"`
	Store       string   `toml:"store"`
	HTTPAddr    string   `toml:"http_addr"`
	GRPCAddr    string   `toml:"grpc_addr"`
	MetricsAddr string   `toml:"metrics_addr"`
	DB          DBConfig `toml:"db"`
	OTELEnabled bool     `toml:"otel_enabled"`

	// TOML では "3s" のような文字列で書く
	RequestTimeout duration `toml:"request_timeout"`
}

// duration は TOML の文字列を time.Duration として読むための薄いラッパ。
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() Config {
	return Config{
		AppEnv:      EnvDevelopment,
		Store:       StoreMemory,
		HTTPAddr:    ":8080",
		GRPCAddr:    ":50051",
		MetricsAddr: ":9464",
		DB: DBConfig{
			Driver:   "mysql",
			Host:     "127.0.0.1",
			Port:     "3306",
			User:     "root",
			Password: "root",
			Name:     "todos",
		},
		RequestTimeout: duration{3 * time.Second},
	}
}

// Load は TODO_CONFIG があれば読み込み、その上に環境変数を重ねる。
func Load(logger *zap.Logger) (Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := Default()

	if path := os.Getenv("TODO_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
		logger.Info("loaded config file", zap.String("path", path))
	}

	applyEnv(&cfg, logger)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, logger *zap.Logger) {
	cfg.AppEnv = getenv("APP_ENV", cfg.AppEnv)
	cfg.Store = getenv("STORE", cfg.Store)
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = getenv("GRPC_ADDR", cfg.GRPCAddr)
	cfg.MetricsAddr = getenv("METRICS_ADDR", cfg.MetricsAddr)

	cfg.DB.Driver = getenv("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.Host = getenv("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = getenv("DB_PORT", cfg.DB.Port)
	cfg.DB.User = getenv("DB_USER", cfg.DB.User)
	cfg.DB.Password = getenv("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = getenv("DB_NAME", cfg.DB.Name)
	cfg.DB.URL = getenv("DATABASE_URL", cfg.DB.URL)
	cfg.DB.Migrate = getenvBool(logger, "DB_MIGRATE", cfg.DB.Migrate)

	cfg.OTELEnabled = getenvBool(logger, "OTEL_ENABLED", cfg.OTELEnabled)

	// timeout は parse が必要なので、まず文字列で読む
	if raw := os.Getenv("REQUEST_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			// 起動失敗にせず、warn して今の値（デフォルト or ファイル）に落とす
			logger.Warn("invalid REQUEST_TIMEOUT, keep current value",
				zap.String("raw", raw),
				zap.Duration("current", cfg.RequestTimeout.Duration),
				zap.Error(err),
			)
		} else {
			cfg.RequestTimeout.Duration = timeout
		}
	}
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreDatabase:
	default:
		return fmt.Errorf("invalid STORE %q (want %q or %q)", c.Store, StoreMemory, StoreDatabase)
	}
	switch c.AppEnv {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("invalid APP_ENV %q", c.AppEnv)
	}
	if c.Store == StoreDatabase && c.IsProduction() && c.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required in production")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

func (c Config) Timeout() time.Duration {
	return c.RequestTimeout.Duration
}

//----------------------
// 共通: getenv ヘルパ
//----------------------

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(logger *zap.Logger, key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Warn("invalid bool env, fallback to current value",
			zap.String("key", key),
			zap.String("raw", raw),
			zap.Bool("current", def),
		)
		return def
	}
	return v
}
