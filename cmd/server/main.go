package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/ogurasousui/codex-employee-api/internal/adapters/grpc/health"
	"github.com/ogurasousui/codex-employee-api/internal/adapters/http/handler"
	"github.com/ogurasousui/codex-employee-api/internal/core/employee"
	"github.com/ogurasousui/codex-employee-api/internal/platform/config"
	"github.com/ogurasousui/codex-employee-api/internal/platform/logger"
	"github.com/ogurasousui/codex-employee-api/internal/platform/metrics"
	"github.com/ogurasousui/codex-employee-api/internal/platform/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	grpchealth "google.golang.org/grpc/health"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		envFile    string
	)

	cmd := &cobra.Command{
		Use:          "employee-server",
		Short:        "Employee records HTTP API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(config.ResolvePath(configPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config when present")

	return cmd
}

// loadEnvFile は .env を読み込みます。ファイルが無い場合は何もしません。既存の環境変数は上書きしません。
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Env)
	if cfg.Env != logger.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(reg)

	st, err := openStore(ctx, cfg.Database, appMetrics)
	if err != nil {
		log.ErrorContext(ctx, "failed to open record store", logger.Err(err))
		return err
	}
	defer st.close()

	svc := employee.NewService(st.repo, nil, st.tx)

	router, err := handler.NewRouter(handler.RouterConfig{
		UseCase:  svc,
		Pinger:   st.pinger,
		Logger:   log,
		Metrics:  appMetrics,
		Gatherer: reg,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	healthSrv := grpchealth.NewServer()
	srv, err := server.New(server.Config{
		HTTPAddr:        cfg.Server.ListenAddr,
		GRPCAddr:        cfg.Server.GRPCListenAddr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, healthSrv, log)
	if err != nil {
		log.ErrorContext(ctx, "failed to listen", logger.Err(err))
		return err
	}

	go health.NewReporter(st.pinger, healthSrv, cfg.Server.HealthInterval, log).Run(ctx)

	log.InfoContext(ctx, "employee service started",
		slog.String("env", cfg.Env),
		slog.String("driver", cfg.Database.Driver),
	)

	if err := srv.Run(ctx); err != nil {
		log.ErrorContext(ctx, "server stopped with error", logger.Err(err))
		return err
	}

	log.InfoContext(ctx, "employee service stopped gracefully")
	return nil
}
