// Package app собирает и запускает процесс route-demo.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/IanKulin/route-demo/internal/health"
	"github.com/IanKulin/route-demo/internal/tracing"
	"github.com/IanKulin/route-demo/internal/version"
	"github.com/IanKulin/route-demo/internal/web"
)

const serviceName = "route-demo"

// Run запускает веб-сервер, метрики, admin gRPC и outbox worker.
// Возвращает ctx.Err() после штатной остановки по контексту.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := log.WithField("component", "app")

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:      cfg.TracingEnabled,
		ServiceName:  serviceName,
		Version:      version.GetVersion(),
		OTLPEndpoint: cfg.TracingEndpoint,
		OTLPInsecure: cfg.TracingInsecure,
		SampleRatio:  cfg.TracingSampleRatio,
	}, logger.WithField("component", "tracing"))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownWithTimeout(shutdownTracing, cfg.ShutdownTimeout, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	deps, err := initRuntimeDependencies(ctx, cfg, logger, registry, healthHandler)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.close(logger); err != nil {
			logger.WithError(err).Warn("failed to close dependencies")
		}
	}()

	webServer, err := web.NewServer(deps.store,
		web.WithLogger(logger.WithField("component", "web")),
		web.WithMetrics(deps.httpMetrics),
	)
	if err != nil {
		return fmt.Errorf("init web server: %w", err)
	}

	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Handler:           webServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("веб-сервер слушает %s", httpLis.Addr())
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var admin *adminServer
	if cfg.GRPCAddr != "" {
		grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			shutdownHTTP(httpSrv, logger)
			return err
		}
		admin = newAdminServer(registry, logger.WithField("component", "grpc"))
		go func() {
			if err := admin.serve(grpcLis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = startMetricsServer(runCtx, cfg.MetricsAddr, logger, registry, healthHandler)
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	worker := deps.newOutboxWorker(cfg, logger)
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервисы")
		runErr = ctx.Err()
	case err := <-errCh:
		logger.WithError(err).Error("сервер завершился с ошибкой")
		runErr = err
	}

	shutdownHTTP(httpSrv, logger)
	if admin != nil {
		admin.stop()
	}
	shutdownOutboxWorker(cancelWorker, workerDone, logger)
	shutdownHTTP(metricsSrv, logger)

	return runErr
}

// shutdownOutboxWorker останавливает worker и ждёт завершения текущей итерации.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("outbox worker shutdown timed out")
	}
}

// metricsMux отдаёт метрики и пробы для оркестратора.
func metricsMux(gatherer prometheus.Gatherer, healthHandler *healthcheck.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	return mux
}

// startMetricsServer слушает addr до отмены ctx.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, gatherer prometheus.Gatherer, healthHandler *healthcheck.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: metricsMux(gatherer, healthHandler), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.WithField("addr", addr).Info("metrics server listening: /metrics /healthz /livez /readyz")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()
	context.AfterFunc(ctx, func() { shutdownHTTP(srv, logger) })
	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

func shutdownWithTimeout(fn tracing.ShutdownFunc, timeout time.Duration, logger *log.Entry) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.WithError(err).Warn("tracing shutdown with error")
	}
}
