package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
	"github.com/vladislavdragonenkov/cleanerspos/internal/health"
	"github.com/vladislavdragonenkov/cleanerspos/internal/metrics"
	"github.com/vladislavdragonenkov/cleanerspos/internal/storage/dynamo"
	"github.com/vladislavdragonenkov/cleanerspos/internal/storage/memory"
	"github.com/vladislavdragonenkov/cleanerspos/internal/storage/mongo"
	"github.com/vladislavdragonenkov/cleanerspos/internal/storage/postgres"
)

// runtimeDependencies - хранилища, выбранные конфигурацией, и всё, что нужно закрыть при остановке.
type runtimeDependencies struct {
	customers domain.CustomerRepository
	orders    domain.OrderRepository
	sequence  domain.SequenceAllocator
	checkers  map[string]health.Checker
	closers   []func(context.Context) error

	memoryDB   *memory.Database
	mongoStore *mongo.Store
}

// close закрывает подключения в обратном порядке открытия.
func (d *runtimeDependencies) close(ctx context.Context) error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry, storeMetrics *metrics.StoreMetrics) (_ *runtimeDependencies, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deps := &runtimeDependencies{checkers: make(map[string]health.Checker)}
	defer func() {
		if err != nil {
			_ = deps.close(context.Background())
		}
	}()

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		deps.memoryDB = memory.NewDatabase()
		deps.customers = memory.NewCustomerRepository(deps.memoryDB)
		deps.orders = memory.NewOrderRepository(deps.memoryDB)
		deps.checkers["store"] = health.NewPingChecker("store", 0, deps.memoryDB.Ping)
		logger.Warn("using in-memory storage, data is lost on restart")
	case StorageDriverMongo:
		store, err := deps.openMongo(ctx, cfg, logger, storeMetrics)
		if err != nil {
			return nil, err
		}
		deps.customers = store.Customers()
		deps.orders = store.Orders()
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if err := deps.initSequence(ctx, cfg, logger, storeMetrics); err != nil {
		return nil, err
	}
	return deps, nil
}

func (d *runtimeDependencies) openMongo(ctx context.Context, cfg Config, logger *log.Entry, storeMetrics *metrics.StoreMetrics) (*mongo.Store, error) {
	if d.mongoStore != nil {
		return d.mongoStore, nil
	}

	store, err := mongo.Connect(ctx, mongo.Config{
		URI:                 cfg.MongoURI,
		Database:            cfg.MongoDatabase,
		CustomersCollection: cfg.CustomersCollection,
		OrdersCollection:    cfg.OrdersCollection,
		SequenceCollection:  cfg.SequenceCollection,
		SequenceStart:       cfg.SequenceStart,
		OpTimeout:           cfg.StoreTimeout,
	}, mongo.WithLogger(logger.WithField("storage", "mongo")), mongo.WithMetrics(storeMetrics))
	if err != nil {
		return nil, fmt.Errorf("init mongo storage: %w", err)
	}
	d.closers = append(d.closers, store.Close)

	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure mongo indexes: %w", err)
	}

	d.mongoStore = store
	d.checkers["mongo"] = health.NewPingChecker("mongo", 0, store.Ping)
	logger.WithField("database", cfg.MongoDatabase).Info("mongo storage initialized")
	return store, nil
}

func (d *runtimeDependencies) initSequence(ctx context.Context, cfg Config, logger *log.Entry, storeMetrics *metrics.StoreMetrics) error {
	backend := cfg.EffectiveSequenceBackend()
	seqLogger := logger.WithField("sequence_backend", string(backend))

	switch backend {
	case SequenceBackendMemory:
		if d.memoryDB == nil {
			d.memoryDB = memory.NewDatabase()
		}
		d.sequence = memory.NewSequence(d.memoryDB, cfg.SequenceName,
			memory.WithStart(cfg.SequenceStart), memory.WithMetrics(storeMetrics))

	case SequenceBackendMongo:
		store, err := d.openMongo(ctx, cfg, logger, storeMetrics)
		if err != nil {
			return err
		}
		d.sequence = store.Sequence()

	case SequenceBackendPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN,
			postgres.WithLogger(seqLogger),
			postgres.WithMetrics(storeMetrics),
			postgres.WithOpTimeout(cfg.StoreTimeout),
		)
		if err != nil {
			return fmt.Errorf("init postgres sequence: %w", err)
		}
		d.closers = append(d.closers, func(context.Context) error { return store.Close() })

		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		d.sequence = store.Sequence(cfg.SequenceName, cfg.SequenceStart)
		d.checkers["postgres"] = health.NewPingChecker("postgres", 0, store.Ping)

	case SequenceBackendDynamoDB:
		client, err := dynamo.NewClient(ctx, cfg.DynamoRegion, cfg.DynamoEndpoint)
		if err != nil {
			return fmt.Errorf("init dynamodb sequence: %w", err)
		}
		seq := dynamo.NewSequence(client, cfg.DynamoTable, cfg.SequenceName,
			dynamo.WithStart(cfg.SequenceStart),
			dynamo.WithOpTimeout(cfg.StoreTimeout),
			dynamo.WithLogger(seqLogger),
			dynamo.WithMetrics(storeMetrics),
		)
		d.sequence = seq
		d.checkers["dynamodb"] = health.NewPingChecker("dynamodb", 0, func(ctx context.Context) error {
			_, err := seq.Get(ctx)
			return err
		})

	default:
		return fmt.Errorf("unsupported sequence backend %q", backend)
	}

	seqLogger.WithField("start", cfg.SequenceStart).Info("sequence allocator initialized")
	return nil
}

// OpenSequence открывает только счётчик: нужен административным утилитам.
func OpenSequence(ctx context.Context, cfg Config, logger *log.Entry) (domain.SequenceAllocator, func(context.Context) error, error) {
	deps := &runtimeDependencies{checkers: make(map[string]health.Checker)}
	if err := deps.initSequence(ctx, cfg, logger, nil); err != nil {
		_ = deps.close(context.Background())
		return nil, nil, err
	}
	return deps.sequence, deps.close, nil
}
