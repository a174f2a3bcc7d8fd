package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/cleanerspos/internal/codec"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func (s *Store) indexPlan() []collectionIndexes {
	return []collectionIndexes{
		{
			collection: s.cfg.OrdersCollection,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: codec.FieldCustomerID, Value: 1}}, Options: options.Index().SetName("orders_customer_id")},
				{Keys: bson.D{{Key: codec.FieldTicketNumber, Value: 1}}, Options: options.Index().SetName("orders_ticket_number")},
			},
		},
		{
			collection: s.cfg.CustomersCollection,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: codec.FieldPhoneNumber, Value: 1}}, Options: options.Index().SetName("customers_phone_number")},
				{Keys: bson.D{{Key: codec.FieldLastName, Value: 1}}, Options: options.Index().SetName("customers_last_name")},
			},
		},
	}
}

// EnsureIndexes создаёт индексы для поиска клиентов и выборки заказов. Повторный вызов безопасен.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, plan := range s.indexPlan() {
		names, err := s.db.Collection(plan.collection).Indexes().CreateMany(ctx, plan.models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", plan.collection, err)
		}
		s.log.WithField("collection", plan.collection).WithField("indexes", names).Info("indexes ensured")
	}
	return nil
}
