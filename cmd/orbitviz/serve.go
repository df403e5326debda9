package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/orbit-visualizer/internal/config"
	"github.com/signalsfoundry/orbit-visualizer/internal/logging"
	"github.com/signalsfoundry/orbit-visualizer/internal/observability"
	"github.com/signalsfoundry/orbit-visualizer/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve scenes, the map and the frame stream over HTTP, and health over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
}

// serve runs until ctx is cancelled, then shuts everything down within
// the configured shutdown timeout.
func serve(ctx context.Context, cfg config.Config, log logging.Logger) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.TracingConfig(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observability.NewServerCollector(reg)
	if err != nil {
		return fmt.Errorf("server metrics: %w", err)
	}

	a, err := newApp(cfg, log, reg)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Engine:       a.engine,
		Fading:       a.fading,
		Accumulating: a.accumulating,
		Map:          a.mapR,
		Metrics:      metrics,
		Log:          log,
		Stream: server.StreamConfig{
			MaxFPS:          cfg.Stream.MaxFPS,
			Burst:           cfg.Stream.Burst,
			MaxClientsPerIP: cfg.Stream.MaxClientsPerIP,
		},
		RunContext:            ctx,
		DefaultParams:         cfg.OrbitParameters(),
		DefaultAnimationSpeed: cfg.Simulation.AnimationSpeed,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	httpSrv := srv.NewHTTPServer(cfg.HTTP.Addr, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, cfg.HTTP.IdleTimeout)
	go func() {
		log.Info(ctx, "starting HTTP server", logging.String("addr", cfg.HTTP.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			_ = httpSrv.Close()
			return fmt.Errorf("listen grpc %s: %w", cfg.GRPC.Addr, err)
		}
		hs, detach := server.NewHealthServer(a.store)
		defer detach()
		grpcSrv = server.NewGRPCServer(hs, metrics, log.With(logging.String("component", "grpc")))
		go func() {
			log.Info(ctx, "starting gRPC health server", logging.String("addr", lis.Addr().String()))
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	if cfg.Simulation.AutoStart {
		if err := a.engine.Start(ctx, cfg.OrbitParameters(), cfg.Simulation.AnimationSpeed); err != nil {
			log.Error(ctx, "auto-start failed", logging.Err(err))
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info(context.Background(), "shutdown requested")
	case runErr = <-errCh:
		log.Error(context.Background(), "server failed", logging.Err(runErr))
	}

	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.engine.Stop(); err == nil {
		log.Info(shutdownCtx, "stopped active run")
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "http shutdown", logging.Err(err))
	}
	if grpcSrv != nil {
		stopGRPC(shutdownCtx, grpcSrv)
	}
	return runErr
}

// stopGRPC drains in-flight calls, forcing a stop when ctx expires.
func stopGRPC(ctx context.Context, srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
		<-done
	}
}
