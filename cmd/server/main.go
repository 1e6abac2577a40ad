package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hijjiri/todo-lists/internal/config"
	domain_todo "github.com/hijjiri/todo-lists/internal/domain/todo"
	"github.com/hijjiri/todo-lists/internal/infrastructure/memory"
	"github.com/hijjiri/todo-lists/internal/infrastructure/rdb"
	grpcadapter "github.com/hijjiri/todo-lists/internal/interface/grpc"
	httpadapter "github.com/hijjiri/todo-lists/internal/interface/http"
	"github.com/hijjiri/todo-lists/internal/telemetry"
	todo_usecase "github.com/hijjiri/todo-lists/internal/usecase/todo"
)

//----------------------
// Store 組み立て
//----------------------

// dsnFor は本番なら DATABASE_URL、それ以外は名前付き DB から DSN を作る。
func dsnFor(cfg config.Config, d rdb.Dialect) string {
	if cfg.IsProduction() {
		return cfg.DB.URL
	}
	return rdb.BuildDSN(d, rdb.ConnParams{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Name:     cfg.DB.Name,
	})
}

type storeBundle struct {
	store   domain_todo.Store
	backend string
	db      *sql.DB        // memory のときは nil
	txMgr   *rdb.TxManager // memory のときは nil
}

func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storeBundle, error) {
	if cfg.Store == config.StoreMemory {
		return storeBundle{store: memory.NewStore(), backend: config.StoreMemory}, nil
	}

	dialect, err := rdb.ParseDialect(cfg.DB.Driver)
	if err != nil {
		return storeBundle{}, err
	}

	db, err := rdb.Open(ctx, dialect, dsnFor(cfg, dialect), logger)
	if err != nil {
		return storeBundle{}, err
	}
	logger.Info("connected to database",
		zap.String("driver", string(dialect)),
		zap.String("db_host", cfg.DB.Host),
		zap.String("db_name", cfg.DB.Name),
		zap.Bool("from_url", cfg.IsProduction()),
	)

	if cfg.DB.Migrate {
		if err := rdb.EnsureSchema(ctx, db, dialect, logger); err != nil {
			db.Close()
			return storeBundle{}, err
		}
	}

	txMgr := rdb.NewTxManager(db, logger)
	return storeBundle{
		store:   rdb.NewStore(db, dialect, txMgr, logger),
		backend: string(dialect),
		db:      db,
		txMgr:   txMgr,
	}, nil
}

//----------------------
// main
//----------------------

func main() {
	// ---- Logger ----
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Config 読み込み ----
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}
	logger.Info("loaded config",
		zap.String("app_env", cfg.AppEnv),
		zap.String("store", cfg.Store),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("grpc_addr", cfg.GRPCAddr),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.String("db_driver", cfg.DB.Driver),
		zap.Duration("request_timeout", cfg.Timeout()),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// ---- Tracing ----
	shutdownTracer, err := telemetry.InitTracer(ctx, "todo-lists", cfg.OTELEnabled, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			logger.Warn("failed to shutdown tracer", zap.Error(err))
		}
	}()

	// ---- Store ----
	sb, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if sb.db != nil {
		defer sb.db.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if sb.db != nil {
		reg.MustRegister(collectors.NewDBStatsCollector(sb.db, cfg.DB.Name))
	}

	store := telemetry.InstrumentStore(
		sb.store,
		telemetry.NewStoreMetrics(reg),
		telemetry.Tracer(),
		sb.backend,
	)

	// ---- ListService + HTTP ----
	uc := todo_usecase.New(store, logger)
	handler := httpadapter.NewTodoHandler(uc, logger)

	// nil の *TxManager をインターフェースに入れないよう分岐する
	var scoper httpadapter.ConnScoper
	if sb.txMgr != nil {
		scoper = sb.txMgr
	}

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpadapter.NewRouter(handler, logger, cfg.Timeout(), scoper),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	// ---- metrics HTTP サーバ (/metrics) ----
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// ---- gRPC (health / reflection) ----
	grpcSrv, healthSrv := grpcadapter.NewServer(logger, cfg.Timeout())
	var pinger grpcadapter.Pinger
	if sb.db != nil {
		pinger = sb.db
	}
	go grpcadapter.NewHealthReporter(healthSrv, pinger, 10*time.Second, logger).Run(ctx)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 3)

	go func() {
		logger.Info("gRPC server is starting", zap.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, net.ErrClosed) {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", zap.String("addr", cfg.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server is starting", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		logger.Error("server error, shutting down", zap.Error(err))
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(sctx); err != nil {
		logger.Warn("failed to shutdown http server", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(sctx); err != nil {
		logger.Warn("failed to shutdown metrics server", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	return err
}
