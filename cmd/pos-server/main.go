package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cleanerspos/internal/app"
	"github.com/vladislavdragonenkov/cleanerspos/internal/version"
)

// setupLogger ставит формат по умолчанию до чтения конфигурации,
// чтобы ошибки загрузки тоже попали в лог.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

func main() {
	setupLogger()

	cfg, err := app.LoadConfig(".env")
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация")
	}

	closer, err := app.ConfigureLogger(cfg)
	if err != nil {
		log.WithError(err).Fatal("не удалось настроить логирование")
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":        cfg.HTTPAddr,
		"metrics_addr":     cfg.MetricsAddr,
		"storage_driver":   cfg.StorageDriver,
		"sequence_backend": cfg.EffectiveSequenceBackend(),
		"version":          version.String(),
	}).Info("запускаем кассу")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("приложение завершилось с ошибкой")
		closer.Close()
		os.Exit(1)
	}

	log.Info("касса остановлена")
}
