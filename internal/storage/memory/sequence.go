package memory

import (
	"context"
	"fmt"
	"math"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
	"github.com/vladislavdragonenkov/cleanerspos/internal/metrics"
)

const backendName = "memory"

// Sequence - счётчик номеров подзаказов, защищённый мьютексом базы.
type Sequence struct {
	db      *Database
	name    string
	start   uint64
	metrics *metrics.StoreMetrics
}

// SequenceOption настраивает Sequence.
type SequenceOption func(*Sequence)

// WithStart задаёт первое выдаваемое значение для ещё не созданного счётчика.
func WithStart(start uint64) SequenceOption {
	return func(s *Sequence) { s.start = start }
}

// WithMetrics подключает метрики выдачи номеров.
func WithMetrics(m *metrics.StoreMetrics) SequenceOption {
	return func(s *Sequence) { s.metrics = m }
}

// NewSequence создаёт счётчик с именем name (по умолчанию стартует с 1).
func NewSequence(db *Database, name string, opts ...SequenceOption) *Sequence {
	s := &Sequence{db: db, name: name, start: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetThenIncrement возвращает текущее значение и увеличивает счётчик.
func (s *Sequence) GetThenIncrement(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.NewStoreError("sequence.next", err)
	}

	s.db.mu.Lock()
	current, ok := s.db.counters[s.name]
	if !ok {
		current = s.start
	}
	s.db.counters[s.name] = current + 1
	s.db.mu.Unlock()

	s.metrics.RecordAllocation(backendName, current)
	return current, nil
}

// Set перезаписывает счётчик. Ограничение int64 такое же, как у внешних хранилищ.
func (s *Sequence) Set(ctx context.Context, value uint64) error {
	if value > math.MaxInt64 {
		return &domain.ValidationError{Entity: "sequence", Reason: fmt.Sprintf("value %d overflows int64", value)}
	}
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("sequence.set", err)
	}

	s.db.mu.Lock()
	s.db.counters[s.name] = value
	s.db.mu.Unlock()
	return nil
}

// Get читает значение без изменения; для несозданного счётчика возвращает start.
func (s *Sequence) Get(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.NewStoreError("sequence.get", err)
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if v, ok := s.db.counters[s.name]; ok {
		return v, nil
	}
	return s.start, nil
}

var _ domain.SequenceAllocator = (*Sequence)(nil)
