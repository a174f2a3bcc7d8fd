// Package app собирает сервис кассы: конфигурация, хранилища, HTTP API и сервер метрик.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cleanerspos/internal/api/httpapi"
	"github.com/vladislavdragonenkov/cleanerspos/internal/health"
	"github.com/vladislavdragonenkov/cleanerspos/internal/metrics"
	"github.com/vladislavdragonenkov/cleanerspos/internal/service/checkout"
	"github.com/vladislavdragonenkov/cleanerspos/internal/version"
)

const (
	shutdownTimeout = 5 * time.Second

	eventBreakerFailures = 5
	eventBreakerReset    = 30 * time.Second
)

// Run запускает сервис и блокируется до отмены ctx или ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	storeMetrics := metrics.NewStoreMetrics()

	deps, err := initRuntimeDependencies(ctx, cfg, logger, storeMetrics)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := deps.close(closeCtx); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	// Kafka необязательна: без неё касса работает, события просто не уходят.
	events := initEventSink(cfg, logger)
	defer events.close()

	opts := append([]checkout.Option{
		checkout.WithMetrics(metrics.NewCheckoutMetrics()),
		checkout.WithLogger(logger.WithField("layer", "checkout")),
	}, events.checkoutOptions()...)
	svc := checkout.New(deps.customers, deps.orders, deps.sequence, opts...)

	healthHandler := health.NewHandler(version.GetVersion())
	for name, checker := range deps.checkers {
		healthHandler.RegisterChecker(name, checker)
	}
	events.registerHealth(healthHandler)
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	api := httpapi.NewApp(httpapi.NewHandler(svc, deps.sequence, logger.WithField("layer", "http")))
	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, logger)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", lis.Addr())
		errCh <- api.Listener(lis, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		if err := api.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.WithError(err).Warn("graceful shutdown превысил таймаут")
		}
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		return err
	}
}

// startMetricsServer запускает /metrics и health-пробы на отдельном адресе.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *health.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", health.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
