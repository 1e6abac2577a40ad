package grpcadapter

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName は health check で個別に問い合わせるときのサービス名。
const ServiceName = "todolists.Store"

// Pinger は *sql.DB が満たす。memory store のときは nil を渡す。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthReporter は Store の疎通を定期的に確認し、health server に反映する。
type HealthReporter struct {
	health   *health.Server
	pinger   Pinger
	interval time.Duration
	logger   *zap.Logger
}

func NewHealthReporter(h *health.Server, pinger Pinger, interval time.Duration, logger *zap.Logger) *HealthReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthReporter{
		health:   h,
		pinger:   pinger,
		interval: interval,
		logger:   logger,
	}
}

// Check は 1 回だけ疎通を見て状態を更新し、その状態を返す。
func (r *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if r.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, r.interval)
		err := r.pinger.PingContext(pingCtx)
		cancel()
		if err != nil {
			r.logger.Warn("store health check failed", zap.Error(err))
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	r.health.SetServingStatus("", st)
	r.health.SetServingStatus(ServiceName, st)
	return st
}

// Run は ctx が終わるまで interval ごとに Check する。終了時は全サービスを NOT_SERVING にする。
func (r *HealthReporter) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	r.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			r.health.Shutdown()
			return
		case <-t.C:
			r.Check(ctx)
		}
	}
}
