package resilient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

var errBroker = errors.New("broker unavailable")

type flakyPublisher struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (f *flakyPublisher) Publish(context.Context, domain.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
}

func testEvent() domain.OrderEvent {
	return domain.OrderEvent{ID: "e-1", Type: domain.OrderEventCreated, OrderID: "o-1"}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxAttempts != 3 {
		t.Fatalf("unexpected MaxAttempts: %d", cfg.MaxAttempts)
	}
	if cfg.InitialDelay <= 0 || cfg.MaxDelay <= 0 {
		t.Fatalf("delays must be positive: %+v", cfg)
	}
	if cfg.BackoffFactor <= 1 {
		t.Fatalf("backoff factor should be > 1: %f", cfg.BackoffFactor)
	}
}

func TestPublisherRetries(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		err       error
		attempts  int
		wantCalls int
		wantErr   error
	}{
		{"first attempt succeeds", 0, errBroker, 3, 1, nil},
		{"retry then success", 2, errBroker, 3, 3, nil},
		{"all attempts fail", 5, errBroker, 3, 3, errBroker},
		{"canceled is not retried", 5, context.Canceled, 3, 1, context.Canceled},
		{"zero attempts means one", 5, errBroker, 0, 1, errBroker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &flakyPublisher{failures: tt.failures, err: tt.err}
			p := NewPublisher(next, fastRetry(tt.attempts), nil, log.New().WithField("test", "retry"))

			err := p.Publish(context.Background(), testEvent())
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
			require.Equal(t, tt.wantCalls, next.calls)
		})
	}
}

func TestPublisherStopsOnContextCancel(t *testing.T) {
	next := &flakyPublisher{failures: 10, err: errBroker}
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Hour, BackoffFactor: 2}
	p := NewPublisher(next, cfg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := p.Publish(ctx, testEvent())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, next.calls)
}

func TestCircuitBreakerExecute(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute, log.New().WithField("test", "breaker"))
	cb.now = func() time.Time { return now }

	fail := func() error { return errBroker }
	ok := func() error { return nil }

	require.ErrorIs(t, cb.Execute("op", fail), errBroker)
	require.Equal(t, CircuitClosed, cb.State())
	require.ErrorIs(t, cb.Execute("op", fail), errBroker)
	require.Equal(t, CircuitOpen, cb.State())

	called := false
	err := cb.Execute("op", func() error { called = true; return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
	require.False(t, called)

	// после таймаута пробный вызов проходит; неудача снова размыкает цепь
	now = now.Add(2 * time.Minute)
	require.ErrorIs(t, cb.Execute("op", fail), errBroker)
	require.Equal(t, CircuitOpen, cb.State())

	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Execute("op", ok))
	require.Equal(t, CircuitClosed, cb.State())
	require.Equal(t, "closed", cb.State().String())
}

func TestPublisherWithBreaker(t *testing.T) {
	next := &flakyPublisher{failures: 100, err: errBroker}
	breaker := NewCircuitBreaker(1, time.Hour, nil)
	p := NewPublisher(next, fastRetry(2), breaker, nil)

	require.ErrorIs(t, p.Publish(context.Background(), testEvent()), errBroker)
	require.Equal(t, 2, next.calls)

	// цепь разомкнута: брокер больше не трогаем
	require.ErrorIs(t, p.Publish(context.Background(), testEvent()), ErrCircuitOpen)
	require.Equal(t, 2, next.calls)
	require.Equal(t, "open", breaker.State().String())
}

func TestCircuitBreakerConcurrentUse(t *testing.T) {
	cb := NewCircuitBreaker(1000, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = cb.Execute("op", func() error {
				if i%2 == 0 {
					return errBroker
				}
				return nil
			})
		}(i)
	}
	wg.Wait()
	require.Equal(t, CircuitClosed, cb.State())
}
