// Package resilient оборачивает публикацию событий повторами и circuit breaker,
// чтобы недоступный брокер не тормозил кассу на каждом заказе.
package resilient

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

// ErrCircuitOpen - публикация пропущена: брокер недавно отказывал подряд.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// RetryConfig конфигурация повторов.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}
}

// Publisher повторяет неудачные публикации и размыкает цепь после серии отказов.
type Publisher struct {
	next    domain.EventPublisher
	config  RetryConfig
	breaker *CircuitBreaker
	logger  *log.Entry
}

// NewPublisher оборачивает next. breaker может быть nil: тогда только повторы.
func NewPublisher(next domain.EventPublisher, config RetryConfig, breaker *CircuitBreaker, logger *log.Entry) *Publisher {
	if logger == nil {
		logger = log.WithField("component", "resilient-publisher")
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	return &Publisher{next: next, config: config, breaker: breaker, logger: logger}
}

// Publish отправляет событие через breaker с экспоненциальной задержкой между попытками.
func (p *Publisher) Publish(ctx context.Context, event domain.OrderEvent) error {
	if p.breaker == nil {
		return p.publishWithRetry(ctx, event)
	}
	return p.breaker.Execute(string(event.Type), func() error {
		return p.publishWithRetry(ctx, event)
	})
}

func (p *Publisher) publishWithRetry(ctx context.Context, event domain.OrderEvent) error {
	var lastErr error
	delay := p.config.InitialDelay

	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		err := p.next.Publish(ctx, event)
		if err == nil {
			if attempt > 1 {
				p.logger.WithFields(log.Fields{
					"event_type": event.Type,
					"order_id":   event.OrderID,
					"attempt":    attempt,
				}).Info("event published after retry")
			}
			return nil
		}
		lastErr = err

		if !shouldRetry(err) || attempt == p.config.MaxAttempts {
			break
		}

		p.logger.WithFields(log.Fields{
			"event_type": event.Type,
			"order_id":   event.OrderID,
			"attempt":    attempt,
			"delay":      delay,
		}).WithError(err).Warn("publish failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * p.config.BackoffFactor)
		if p.config.MaxDelay > 0 && delay > p.config.MaxDelay {
			delay = p.config.MaxDelay
		}
	}

	return lastErr
}

// shouldRetry: отменённый запрос повторять бессмысленно.
func shouldRetry(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// CircuitState - состояние circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreaker безопасен для конкурентного использования.
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time
	logger       *log.Entry

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	state       CircuitState
}

// NewCircuitBreaker размыкает цепь после maxFailures отказов подряд на resetTimeout.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, logger *log.Entry) *CircuitBreaker {
	if logger == nil {
		logger = log.WithField("component", "circuit-breaker")
	}
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
		logger:       logger,
		state:        CircuitClosed,
	}
}

// State возвращает текущее состояние.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute выполняет fn, если цепь замкнута или пришло время пробного вызова.
func (cb *CircuitBreaker) Execute(operation string, fn func() error) error {
	if !cb.allow(operation) {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == CircuitHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = CircuitOpen
			cb.logger.WithFields(log.Fields{
				"operation": operation,
				"failures":  cb.failures,
			}).Warn("circuit breaker opened")
		}
		return err
	}

	if cb.state == CircuitHalfOpen {
		cb.logger.WithField("operation", operation).Info("circuit breaker closed")
	}
	cb.state = CircuitClosed
	cb.failures = 0
	return nil
}

func (cb *CircuitBreaker) allow(operation string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return true
	}
	if cb.now().Sub(cb.lastFailure) > cb.resetTimeout {
		cb.state = CircuitHalfOpen
		cb.logger.WithField("operation", operation).Info("circuit breaker half-open")
		return true
	}
	return false
}

var _ domain.EventPublisher = (*Publisher)(nil)
