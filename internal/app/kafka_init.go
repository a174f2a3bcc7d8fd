package app

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cleanerspos/internal/health"
	"github.com/vladislavdragonenkov/cleanerspos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/cleanerspos/internal/messaging/resilient"
	"github.com/vladislavdragonenkov/cleanerspos/internal/service/checkout"
)

// eventSink - публикация событий заказа: sarama producer за retry и circuit breaker.
type eventSink struct {
	producer  *kafka.Producer
	publisher *resilient.Publisher
	breaker   *resilient.CircuitBreaker
	logger    *log.Entry
}

// initEventSink собирает публикацию из конфигурации. nil означает «событий нет»:
// брокеры не заданы или недоступны при старте, касса при этом работает.
func initEventSink(cfg Config, logger *log.Entry) *eventSink {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("POS_KAFKA_BROKERS is empty, order events are disabled")
		return nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		logger.WithError(err).
			WithField("brokers", strings.Join(cfg.KafkaBrokers, ",")).
			Warn("kafka is unreachable, order events are disabled")
		return nil
	}

	logger.WithField("brokers", cfg.KafkaBrokers).WithField("topic", cfg.KafkaTopic).Info("kafka producer initialized")
	return newEventSink(producer, logger)
}

func newEventSink(producer *kafka.Producer, logger *log.Entry) *eventSink {
	eventsLog := logger.WithField("layer", "events")
	breaker := resilient.NewCircuitBreaker(eventBreakerFailures, eventBreakerReset, eventsLog)
	return &eventSink{
		producer:  producer,
		publisher: resilient.NewPublisher(producer, resilient.DefaultRetryConfig(), breaker, eventsLog),
		breaker:   breaker,
		logger:    eventsLog,
	}
}

func (s *eventSink) checkoutOptions() []checkout.Option {
	if s == nil {
		return nil
	}
	return []checkout.Option{checkout.WithEventPublisher(s.publisher)}
}

// registerHealth добавляет проверку "kafka": открытый breaker - degraded,
// потому что без событий касса продолжает принимать заказы.
func (s *eventSink) registerHealth(h *health.Handler) {
	if s == nil {
		return
	}
	h.RegisterChecker("kafka", breakerChecker{breaker: s.breaker})
}

func (s *eventSink) close() {
	if s == nil {
		return
	}
	if err := s.producer.Close(); err != nil {
		s.logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	s.logger.Info("kafka producer closed")
}

type breakerChecker struct {
	breaker *resilient.CircuitBreaker
}

func (c breakerChecker) Check(context.Context) health.Check {
	state := c.breaker.State()
	check := health.Check{Name: "kafka", Status: health.StatusHealthy}
	if state != resilient.CircuitClosed {
		check.Status = health.StatusDegraded
		check.Message = "event circuit breaker is " + state.String()
	}
	return check
}
