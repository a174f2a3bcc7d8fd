package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/cleanerspos/internal/codec"
	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

const (
	counterDocID     = "nextId"
	counterField     = "nextId"
	maxAllocAttempts = 3
)

var errAllocationContention = errors.New("sequence counter creation kept conflicting")

// Sequence - счётчик номеров подзаказов в одном документе коллекции NextId.
type Sequence struct {
	store *Store
	coll  *mongo.Collection
	start uint64
}

// GetThenIncrement атомарно увеличивает счётчик через $inc и возвращает значение до увеличения.
// Первый вызов создаёт документ; проигравший гонку за вставку повторяет $inc.
func (s *Sequence) GetThenIncrement(ctx context.Context) (uint64, error) {
	var id uint64
	err := s.store.do(ctx, "sequence.next", func(ctx context.Context) error {
		filter := bson.D{{Key: codec.FieldID, Value: counterDocID}}
		update := bson.D{{Key: "$inc", Value: bson.D{{Key: counterField, Value: int64(1)}}}}
		findOpts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

		for attempt := 0; attempt < maxAllocAttempts; attempt++ {
			var before bson.D
			err := s.coll.FindOneAndUpdate(ctx, filter, update, findOpts).Decode(&before)
			if err == nil {
				v, err := counterValue(before)
				if err != nil {
					return domain.NewStoreError("sequence.next", err)
				}
				id = v
				return nil
			}
			if !errors.Is(err, mongo.ErrNoDocuments) {
				return domain.NewStoreError("sequence.next", err)
			}

			_, err = s.coll.InsertOne(ctx, bson.D{
				{Key: codec.FieldID, Value: counterDocID},
				{Key: counterField, Value: int64(s.start + 1)},
			})
			if err == nil {
				id = s.start
				return nil
			}
			if !mongo.IsDuplicateKeyError(err) {
				return domain.NewStoreError("sequence.next", err)
			}
		}
		return domain.NewStoreError("sequence.next", errAllocationContention)
	})
	if err != nil {
		return 0, err
	}
	s.store.metrics.RecordAllocation(backendName, id)
	return id, nil
}

// Set перезаписывает счётчик (upsert).
func (s *Sequence) Set(ctx context.Context, value uint64) error {
	if value > math.MaxInt64 {
		return &domain.ValidationError{Entity: "sequence", Reason: fmt.Sprintf("value %d overflows int64", value)}
	}
	return s.store.do(ctx, "sequence.set", func(ctx context.Context) error {
		_, err := s.coll.UpdateOne(ctx,
			bson.D{{Key: codec.FieldID, Value: counterDocID}},
			bson.D{{Key: "$set", Value: bson.D{{Key: counterField, Value: int64(value)}}}},
			options.Update().SetUpsert(true),
		)
		return domain.NewStoreError("sequence.set", err)
	})
}

// Get читает счётчик; отсутствие документа означает стартовое значение.
func (s *Sequence) Get(ctx context.Context) (uint64, error) {
	var value uint64
	err := s.store.do(ctx, "sequence.get", func(ctx context.Context) error {
		var raw bson.D
		err := s.coll.FindOne(ctx, bson.D{{Key: codec.FieldID, Value: counterDocID}}).Decode(&raw)
		if errors.Is(err, mongo.ErrNoDocuments) {
			value = s.start
			return nil
		}
		if err != nil {
			return domain.NewStoreError("sequence.get", err)
		}
		v, err := counterValue(raw)
		if err != nil {
			return domain.NewStoreError("sequence.get", err)
		}
		value = v
		return nil
	})
	return value, err
}

// counterValue читает nextId. Старые записи могли сохранить его как int32 или double.
func counterValue(raw bson.D) (uint64, error) {
	doc, err := codec.DecodeDocument(raw)
	if err != nil {
		return 0, err
	}
	v, ok := doc[counterField]
	if !ok {
		return 0, fmt.Errorf("counter document has no %q field", counterField)
	}
	if i, ok := v.AsInt(); ok {
		if i < 0 {
			return 0, fmt.Errorf("negative counter value %d", i)
		}
		return uint64(i), nil
	}
	if f, ok := v.AsFloat(); ok && f >= 0 && f == math.Trunc(f) {
		return uint64(f), nil
	}
	return 0, fmt.Errorf("%w: counter is %s", codec.ErrKindMismatch, v.Kind())
}

var _ domain.SequenceAllocator = (*Sequence)(nil)
