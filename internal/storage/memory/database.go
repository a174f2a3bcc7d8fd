// Package memory - in-memory реализация хранилища для локальной разработки и тестов.
// Данные хранятся в виде codec.Document, как в документной БД, поэтому
// через этот backend проходит тот же маппинг, что и через MongoDB.
package memory

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/cleanerspos/internal/codec"
	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

var errDuplicateID = errors.New("duplicate _id")

// Database - набор коллекций, общий для репозиториев одного процесса.
type Database struct {
	mu        sync.RWMutex
	customers map[primitive.ObjectID]codec.Document
	orders    map[primitive.ObjectID]codec.Document
	counters  map[string]uint64
}

// NewDatabase создаёт пустую базу.
func NewDatabase() *Database {
	return &Database{
		customers: make(map[primitive.ObjectID]codec.Document),
		orders:    make(map[primitive.ObjectID]codec.Document),
		counters:  make(map[string]uint64),
	}
}

// Ping всегда успешен, пока контекст не отменён.
func (db *Database) Ping(ctx context.Context) error {
	return ctx.Err()
}

// insert кладёт копию документа в коллекцию и назначает _id, если его нет.
func insert(coll map[primitive.ObjectID]codec.Document, op string, doc codec.Document) (primitive.ObjectID, error) {
	id, err := doc.ObjectID(codec.FieldID)
	if err != nil {
		return primitive.NilObjectID, domain.NewStoreError(op, err)
	}
	if id.IsZero() {
		id = primitive.NewObjectID()
	}
	if _, exists := coll[id]; exists {
		return primitive.NilObjectID, domain.NewStoreError(op, errDuplicateID)
	}
	stored := doc.Clone()
	stored[codec.FieldID] = codec.ObjectID(id)
	coll[id] = stored
	return id, nil
}

// applySet применяет $set к копии документа и сообщает, изменилось ли что-нибудь.
func applySet(current, set codec.Document) (codec.Document, bool) {
	next := current.Clone()
	for k, v := range set {
		next[k] = v.Clone()
	}
	return next, !next.Equal(current)
}
