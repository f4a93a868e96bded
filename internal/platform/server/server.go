package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const readHeaderTimeout = 5 * time.Second

// Server は HTTP サーバーと gRPC ヘルスサーバーのライフサイクルを管理します。
type Server struct {
	httpServer      *http.Server
	httpListener    net.Listener
	grpcServer      *grpc.Server
	grpcListener    net.Listener
	shutdownTimeout time.Duration
	log             *slog.Logger
}

// Config は Server の待ち受け設定です。
type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	ShutdownTimeout time.Duration
}

// New は指定されたアドレスで待ち受ける Server を構築します。
// アドレスの確保はここで行うため、":0" を渡した場合も Addr で実際のポートを取得できます。
func New(cfg Config, handler http.Handler, health *grpchealth.Server, log *slog.Logger, opts ...grpc.ServerOption) (*Server, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		httpLis.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}

	gs := grpc.NewServer(opts...)
	if health != nil {
		healthpb.RegisterHealthServer(gs, health)
	}

	return &Server{
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		httpListener:    httpLis,
		grpcServer:      gs,
		grpcListener:    grpcLis,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             log,
	}, nil
}

// HTTPAddr は HTTP サーバーが待ち受けているアドレスを返します。
func (s *Server) HTTPAddr() net.Addr { return s.httpListener.Addr() }

// GRPCAddr は gRPC サーバーが待ち受けているアドレスを返します。
func (s *Server) GRPCAddr() net.Addr { return s.grpcListener.Addr() }

// Run はサーバーを起動し、コンテキストがキャンセルされると両方を安全に停止します。
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.InfoContext(ctx, "http server listening", slog.String("addr", s.HTTPAddr().String()))
		if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.log.InfoContext(ctx, "grpc server listening", slog.String("addr", s.GRPCAddr().String()))
		if err := s.grpcServer.Serve(s.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("shutting down servers", slog.Duration("timeout", timeout))

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	err := s.httpServer.Shutdown(ctx)

	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}

	if err != nil {
		return fmt.Errorf("shutdown HTTP: %w", err)
	}
	return nil
}
