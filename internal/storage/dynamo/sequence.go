package dynamo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
	"github.com/vladislavdragonenkov/cleanerspos/internal/metrics"
)

const (
	backendName      = "dynamodb"
	defaultOpTimeout = 5 * time.Second

	incrementExpression = "SET next_value = if_not_exists(next_value, :start) + :one"
)

// ErrTableMissing - таблица счётчиков не существует.
var ErrTableMissing = errors.New("dynamodb counter table does not exist")

// counterItem - строка таблицы счётчиков. Ключ партиции - name.
type counterItem struct {
	Name      string `dynamodbav:"name"`
	NextValue int64  `dynamodbav:"next_value"`
}

// Sequence - счётчик номеров подзаказов в одной записи таблицы DynamoDB.
type Sequence struct {
	client    API
	table     string
	name      string
	start     uint64
	opTimeout time.Duration
	log       *log.Entry
	metrics   *metrics.StoreMetrics
}

// Option настраивает Sequence.
type Option func(*Sequence)

func WithStart(start uint64) Option {
	return func(s *Sequence) {
		if start > 0 {
			s.start = start
		}
	}
}

func WithOpTimeout(d time.Duration) Option {
	return func(s *Sequence) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

func WithLogger(entry *log.Entry) Option {
	return func(s *Sequence) {
		if entry != nil {
			s.log = entry
		}
	}
}

func WithMetrics(m *metrics.StoreMetrics) Option {
	return func(s *Sequence) { s.metrics = m }
}

// NewSequence создаёт счётчик name в таблице table.
func NewSequence(client API, table, name string, opts ...Option) *Sequence {
	s := &Sequence{
		client:    client,
		table:     table,
		name:      name,
		start:     1,
		opTimeout: defaultOpTimeout,
		log:       log.WithField("component", "dynamodb-sequence"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sequence) key() (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(struct {
		Name string `dynamodbav:"name"`
	}{Name: s.name})
}

// GetThenIncrement увеличивает счётчик одним UpdateItem и возвращает значение до увеличения.
func (s *Sequence) GetThenIncrement(ctx context.Context) (uint64, error) {
	var value uint64
	err := s.do(ctx, "sequence.next", func(ctx context.Context) error {
		key, err := s.key()
		if err != nil {
			return err
		}
		out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:        aws.String(s.table),
			Key:              key,
			UpdateExpression: aws.String(incrementExpression),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":start": &types.AttributeValueMemberN{Value: strconv.FormatUint(s.start, 10)},
				":one":   &types.AttributeValueMemberN{Value: "1"},
			},
			ReturnValues: types.ReturnValueUpdatedNew,
		})
		if err != nil {
			return err
		}

		var item counterItem
		if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
			return fmt.Errorf("unmarshal counter: %w", err)
		}
		if item.NextValue < 1 {
			return fmt.Errorf("unexpected counter value %d", item.NextValue)
		}
		value = uint64(item.NextValue - 1)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.RecordAllocation(backendName, value)
	return value, nil
}

// Set перезаписывает запись счётчика.
func (s *Sequence) Set(ctx context.Context, value uint64) error {
	if value > math.MaxInt64 {
		return &domain.ValidationError{Entity: "sequence", Reason: fmt.Sprintf("value %d overflows int64", value)}
	}
	return s.do(ctx, "sequence.set", func(ctx context.Context) error {
		item, err := attributevalue.MarshalMap(counterItem{Name: s.name, NextValue: int64(value)})
		if err != nil {
			return fmt.Errorf("marshal counter: %w", err)
		}
		_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.table),
			Item:      item,
		})
		return err
	})
}

// Get читает счётчик строго согласованным чтением.
func (s *Sequence) Get(ctx context.Context) (uint64, error) {
	var value uint64
	err := s.do(ctx, "sequence.get", func(ctx context.Context) error {
		key, err := s.key()
		if err != nil {
			return err
		}
		out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(s.table),
			Key:            key,
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			return err
		}
		if len(out.Item) == 0 {
			value = s.start
			return nil
		}
		var item counterItem
		if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
			return fmt.Errorf("unmarshal counter: %w", err)
		}
		if item.NextValue < 0 {
			return fmt.Errorf("unexpected counter value %d", item.NextValue)
		}
		value = uint64(item.NextValue)
		return nil
	})
	return value, err
}

func (s *Sequence) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
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
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
		return fmt.Errorf("%w: %v", ErrTableMissing, err)
	}
	return err
}

var _ domain.SequenceAllocator = (*Sequence)(nil)
