package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/ogurasousui/codex-employee-api/internal/platform/logger"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// EmployeeService は社員 API のサービス名として報告する名前です。
const EmployeeService = "employee.v1.EmployeeService"

const pingTimeout = 2 * time.Second

// Pinger はストアへの疎通確認を行います。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Reporter はストアの疎通結果を gRPC ヘルスサービスへ反映します。
type Reporter struct {
	pinger   Pinger
	server   *grpchealth.Server
	interval time.Duration
	services []string
	log      *slog.Logger
}

// NewReporter は Reporter を生成します。interval が 0 以下の場合は 15 秒を使います。
func NewReporter(p Pinger, srv *grpchealth.Server, interval time.Duration, log *slog.Logger) *Reporter {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Reporter{
		pinger:   p,
		server:   srv,
		interval: interval,
		services: []string{"", EmployeeService},
		log:      log,
	}
}

// Check は 1 回だけ疎通確認を行い、結果のステータスを返します。
func (r *Reporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := r.pinger.Ping(pingCtx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		r.log.WarnContext(ctx, "grpc health: store ping failed", logger.Err(err))
	}

	for _, svc := range r.services {
		r.server.SetServingStatus(svc, status)
	}
	return status
}

// Run は ctx がキャンセルされるまで定期的に Check を実行します。
// 終了時はヘルスサービスを Shutdown し、全サービスを NOT_SERVING にします。
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			r.server.Shutdown()
			return
		case <-ticker.C:
			r.Check(ctx)
		}
	}
}
