package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "POS_"

// StorageDriver выбирает хранилище клиентов и заказов.
type StorageDriver string

const (
	StorageDriverMemory StorageDriver = "memory"
	StorageDriverMongo  StorageDriver = "mongo"
)

// SequenceBackend выбирает хранилище счётчика номеров подзаказов.
type SequenceBackend string

const (
	SequenceBackendMemory   SequenceBackend = "memory"
	SequenceBackendMongo    SequenceBackend = "mongo"
	SequenceBackendPostgres SequenceBackend = "postgres"
	SequenceBackendDynamoDB SequenceBackend = "dynamodb"
)

// Config - настройки запуска. Переменные окружения читаются с префиксом POS_.
type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	StorageDriver StorageDriver `env:"STORAGE_DRIVER" envDefault:"memory"`
	// SequenceBackend пустой - счётчик живёт там же, где клиенты и заказы.
	SequenceBackend SequenceBackend `env:"SEQUENCE_BACKEND"`
	// SequenceName - ключ счётчика в postgres/dynamodb/memory. В MongoDB документ всегда nextId.
	SequenceName  string        `env:"SEQUENCE_NAME" envDefault:"nextId"`
	SequenceStart uint64        `env:"SEQUENCE_START" envDefault:"1"`
	StoreTimeout  time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	MongoURI            string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase       string `env:"MONGO_DATABASE" envDefault:"pos"`
	CustomersCollection string `env:"MONGO_CUSTOMERS_COLLECTION" envDefault:"Customers"`
	OrdersCollection    string `env:"MONGO_ORDERS_COLLECTION" envDefault:"Orders"`
	SequenceCollection  string `env:"MONGO_SEQUENCE_COLLECTION" envDefault:"NextId"`

	PostgresDSN         string `env:"POSTGRES_DSN"`
	PostgresAutoMigrate bool   `env:"POSTGRES_AUTO_MIGRATE" envDefault:"true"`

	DynamoTable    string `env:"DYNAMODB_TABLE" envDefault:"pos_counters"`
	DynamoRegion   string `env:"DYNAMODB_REGION"`
	DynamoEndpoint string `env:"DYNAMODB_ENDPOINT"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"pos.order.events"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	// LogFile - путь к файлу с ротацией; пусто - только stdout.
	LogFile string `env:"LOG_FILE"`
}

// DefaultConfig возвращает значения по умолчанию, как если бы окружение было пустым.
func DefaultConfig() Config {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{
		Prefix:      envPrefix,
		Environment: map[string]string{},
	})
	if err != nil {
		panic(fmt.Sprintf("invalid config defaults: %v", err))
	}
	return cfg
}

// LoadConfig читает необязательные .env-файлы, затем окружение, и проверяет результат.
// Уже заданные переменные окружения .env не перезаписывает.
func LoadConfig(envFiles ...string) (Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: envPrefix})
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EffectiveSequenceBackend раскрывает пустой SequenceBackend в бэкенд основного хранилища.
func (c Config) EffectiveSequenceBackend() SequenceBackend {
	if c.SequenceBackend != "" {
		return c.SequenceBackend
	}
	if c.StorageDriver == StorageDriverMongo {
		return SequenceBackendMongo
	}
	return SequenceBackendMemory
}

// Validate проверяет согласованность настроек до подключения к хранилищам.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http address is empty"))
	}
	if strings.TrimSpace(c.MetricsAddr) == "" {
		errs = append(errs, errors.New("metrics address is empty"))
	}

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("mongo storage requires POS_MONGO_URI"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	switch c.EffectiveSequenceBackend() {
	case SequenceBackendMemory:
		if c.StorageDriver == StorageDriverMongo {
			errs = append(errs, errors.New("memory sequence cannot back a persistent mongo store"))
		}
	case SequenceBackendMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("mongo sequence requires POS_MONGO_URI"))
		}
	case SequenceBackendPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres sequence requires POS_POSTGRES_DSN"))
		}
	case SequenceBackendDynamoDB:
		if c.DynamoTable == "" {
			errs = append(errs, errors.New("dynamodb sequence requires POS_DYNAMODB_TABLE"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported sequence backend %q", c.SequenceBackend))
	}

	if c.SequenceStart == 0 {
		errs = append(errs, errors.New("sequence start must be positive"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("store timeout must be positive"))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format %q", c.LogFormat))
	}

	return errors.Join(errs...)
}
