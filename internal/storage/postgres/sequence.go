package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
	"github.com/vladislavdragonenkov/cleanerspos/internal/metrics"
)

// pgUndefinedTable - SQLSTATE отсутствующей таблицы.
const pgUndefinedTable = "42P01"

// ErrSchemaMissing - таблица счётчиков не создана, нужно выполнить миграции.
var ErrSchemaMissing = errors.New("sequence_counters table is missing, run migrations")

const (
	nextQuery = `
INSERT INTO sequence_counters (name, next_value, updated_at)
VALUES ($1, $2::bigint + 1, NOW())
ON CONFLICT (name) DO UPDATE
    SET next_value = sequence_counters.next_value + 1,
        updated_at = NOW()
RETURNING next_value - 1`

	setQuery = `
INSERT INTO sequence_counters (name, next_value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (name) DO UPDATE
    SET next_value = EXCLUDED.next_value,
        updated_at = NOW()`

	getQuery = `SELECT next_value FROM sequence_counters WHERE name = $1`
)

// Sequence - счётчик номеров подзаказов в строке таблицы sequence_counters.
// Инкремент выполняется одним INSERT ... ON CONFLICT, поэтому гонок нет и без транзакций.
type Sequence struct {
	store *Store
	name  string
	start uint64
}

// Sequence возвращает счётчик с именем name; start - первое выдаваемое значение.
func (s *Store) Sequence(name string, start uint64) *Sequence {
	if start == 0 {
		start = 1
	}
	return &Sequence{store: s, name: name, start: start}
}

func (q *Sequence) GetThenIncrement(ctx context.Context) (uint64, error) {
	var value int64
	err := q.store.do(ctx, "sequence.next", func(ctx context.Context) error {
		return q.store.db.QueryRowContext(ctx, nextQuery, q.name, int64(q.start)).Scan(&value)
	})
	if err != nil {
		return 0, err
	}
	q.store.metrics.RecordAllocation(backendName, uint64(value))
	return uint64(value), nil
}

func (q *Sequence) Set(ctx context.Context, value uint64) error {
	if value > math.MaxInt64 {
		return &domain.ValidationError{Entity: "sequence", Reason: fmt.Sprintf("value %d overflows bigint", value)}
	}
	return q.store.do(ctx, "sequence.set", func(ctx context.Context) error {
		_, err := q.store.db.ExecContext(ctx, setQuery, q.name, int64(value))
		return err
	})
}

// Get читает счётчик без изменения; строки ещё нет - значит стартовое значение.
func (q *Sequence) Get(ctx context.Context) (uint64, error) {
	var value int64
	err := q.store.do(ctx, "sequence.get", func(ctx context.Context) error {
		err := q.store.db.QueryRowContext(ctx, getQuery, q.name).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			value = int64(q.start)
			return nil
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return uint64(value), nil
}

// do выполняет запрос с дедлайном, метриками и переводом ошибок драйвера в StoreError.
func (s *Store) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	start := time.Now()
	err := fn(opCtx)
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
		err = domain.NewStoreError(op, classify(err))
		s.log.WithError(err).WithField("op", op).Error("store operation failed")
	}
	s.metrics.ObserveOperation(backendName, op, result, time.Since(start))
	return err
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("%w: %v", ErrSchemaMissing, err)
	}
	return err
}

var _ domain.SequenceAllocator = (*Sequence)(nil)
