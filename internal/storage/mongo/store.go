// Package mongo - основное хранилище POS поверх MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
	"github.com/vladislavdragonenkov/cleanerspos/internal/metrics"
)

const (
	backendName = "mongo"

	defaultOpTimeout      = 5 * time.Second
	defaultConnectTimeout = 5 * time.Second
	defaultSocketTimeout  = 10 * time.Second
	defaultPingTimeout    = 2 * time.Second
	defaultMaxPoolSize    = 50
	defaultMinPoolSize    = 10
)

// Config описывает подключение и имена коллекций.
type Config struct {
	URI                 string
	Database            string
	CustomersCollection string
	OrdersCollection    string
	SequenceCollection  string
	// SequenceStart - первый номер подзаказа для ещё не созданного счётчика.
	SequenceStart uint64
	// OpTimeout ограничивает каждую операцию репозитория.
	OpTimeout time.Duration
}

// DefaultConfig возвращает имена коллекций, совместимые с существующей базой магазина.
func DefaultConfig() Config {
	return Config{
		URI:                 "mongodb://localhost:27017",
		Database:            "pos",
		CustomersCollection: "Customers",
		OrdersCollection:    "Orders",
		SequenceCollection:  "NextId",
		SequenceStart:       1,
		OpTimeout:           defaultOpTimeout,
	}
}

// Store держит клиент MongoDB и создаёт репозитории.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	cfg     Config
	log     *log.Entry
	metrics *metrics.StoreMetrics
}

// Option настраивает Store.
type Option func(*Store)

// WithLogger задаёт logrus-entry для ошибок хранилища.
func WithLogger(entry *log.Entry) Option {
	return func(s *Store) {
		if entry != nil {
			s.log = entry
		}
	}
}

// WithMetrics подключает метрики операций.
func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Connect подключается к MongoDB и проверяет соединение.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is empty")
	}

	clientOptions := options.Client().ApplyURI(cfg.URI).
		SetMaxPoolSize(defaultMaxPoolSize).
		SetMinPoolSize(defaultMinPoolSize).
		SetConnectTimeout(defaultConnectTimeout).
		SetSocketTimeout(defaultSocketTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return NewStore(client, cfg, opts...), nil
}

// NewStore оборачивает уже подключённый клиент.
func NewStore(client *mongo.Client, cfg Config, opts ...Option) *Store {
	def := DefaultConfig()
	if cfg.Database == "" {
		cfg.Database = def.Database
	}
	if cfg.CustomersCollection == "" {
		cfg.CustomersCollection = def.CustomersCollection
	}
	if cfg.OrdersCollection == "" {
		cfg.OrdersCollection = def.OrdersCollection
	}
	if cfg.SequenceCollection == "" {
		cfg.SequenceCollection = def.SequenceCollection
	}
	if cfg.SequenceStart == 0 {
		cfg.SequenceStart = def.SequenceStart
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = def.OpTimeout
	}

	s := &Store{
		client: client,
		db:     client.Database(cfg.Database),
		cfg:    cfg,
		log:    log.WithField("component", "mongo-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Customers возвращает репозиторий клиентов.
func (s *Store) Customers() domain.CustomerRepository {
	return &customerRepository{
		store:  s,
		coll:   s.db.Collection(s.cfg.CustomersCollection),
		orders: s.db.Collection(s.cfg.OrdersCollection),
	}
}

// Orders возвращает репозиторий заказов.
func (s *Store) Orders() domain.OrderRepository {
	return &orderRepository{store: s, coll: s.db.Collection(s.cfg.OrdersCollection)}
}

// Sequence возвращает счётчик номеров подзаказов.
func (s *Store) Sequence() *Sequence {
	return &Sequence{
		store: s,
		coll:  s.db.Collection(s.cfg.SequenceCollection),
		start: s.cfg.SequenceStart,
	}
}

// Ping проверяет доступность сервера.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("mongo store is not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	return s.client.Ping(pingCtx, nil)
}

// Close отключает клиент.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// Drop удаляет базу целиком. Нужен интеграционным тестам.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

// do выполняет операцию с собственным дедлайном, пишет метрики и логирует сбои хранилища.
func (s *Store) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()

	start := time.Now()
	err := fn(opCtx)
	s.metrics.ObserveOperation(backendName, op, resultOf(err), time.Since(start))

	if domain.IsStoreFailure(err) {
		s.log.WithError(err).WithField("op", op).Error("store operation failed")
	}
	return err
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case domain.IsNotFound(err):
		return metrics.ResultNotFound
	case domain.IsValidation(err):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}

// notFoundOr превращает mongo.ErrNoDocuments в доменную ошибку, остальное - в StoreError.
func notFoundOr(op string, err, notFound error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return domain.NewStoreError(op, err)
}
