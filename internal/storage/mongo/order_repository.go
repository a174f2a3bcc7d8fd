package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vladislavdragonenkov/cleanerspos/internal/codec"
	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

type orderRepository struct {
	store *Store
	coll  *mongo.Collection
}

// Add пишет заказ одним документом, поэтому частичной вставки не бывает.
func (r *orderRepository) Add(ctx context.Context, order domain.Order) (primitive.ObjectID, error) {
	if err := order.Validate(); err != nil {
		return primitive.NilObjectID, err
	}
	doc, err := codec.OrderToDocument(order)
	if err != nil {
		return primitive.NilObjectID, &domain.ValidationError{Entity: "order", Reason: err.Error()}
	}

	var id primitive.ObjectID
	err = r.store.do(ctx, "orders.insert", func(ctx context.Context) error {
		res, err := r.coll.InsertOne(ctx, codec.EncodeDocument(doc))
		if err != nil {
			return domain.NewStoreError("orders.insert", err)
		}
		oid, ok := res.InsertedID.(primitive.ObjectID)
		if !ok {
			return domain.NewStoreError("orders.insert", fmt.Errorf("unexpected inserted id type %T", res.InsertedID))
		}
		id = oid
		return nil
	})
	return id, err
}

func (r *orderRepository) Get(ctx context.Context, id primitive.ObjectID) (domain.Order, error) {
	var order domain.Order
	err := r.store.do(ctx, "orders.get", func(ctx context.Context) error {
		var raw bson.D
		if err := r.coll.FindOne(ctx, byID(id)).Decode(&raw); err != nil {
			return notFoundOr("orders.get", err, domain.ErrOrderNotFound)
		}
		o, err := decodeOrder(raw)
		if err != nil {
			return domain.NewStoreError("orders.get", err)
		}
		order = o
		return nil
	})
	return order, err
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]domain.Order, error) {
	var result []domain.Order
	err := r.store.do(ctx, "orders.list", func(ctx context.Context) error {
		cur, err := r.coll.Find(ctx, bson.D{{Key: codec.FieldCustomerID, Value: customerID}})
		if err != nil {
			return domain.NewStoreError("orders.list", err)
		}
		defer cur.Close(ctx)

		found := make([]domain.Order, 0)
		for cur.Next(ctx) {
			var raw bson.D
			if err := cur.Decode(&raw); err != nil {
				return domain.NewStoreError("orders.list", err)
			}
			o, err := decodeOrder(raw)
			if err != nil {
				return domain.NewStoreError("orders.list", err)
			}
			found = append(found, o)
		}
		if err := cur.Err(); err != nil {
			return domain.NewStoreError("orders.list", err)
		}
		result = found
		return nil
	})
	return result, err
}

func (r *orderRepository) Update(ctx context.Context, id primitive.ObjectID, patch domain.OrderPatch) (bool, error) {
	if err := patch.Validate(); err != nil {
		return false, err
	}

	var modified bool
	err := r.store.do(ctx, "orders.update", func(ctx context.Context) error {
		res, err := r.coll.UpdateOne(ctx, orderUpdateFilter(id, patch), orderUpdate(patch))
		if err != nil {
			return domain.NewStoreError("orders.update", err)
		}
		if res.MatchedCount == 0 {
			return r.missReason(ctx, id, patch)
		}
		modified = res.ModifiedCount > 0
		return nil
	})
	return modified, err
}

// missReason отличает отсутствующий заказ от несовпавшего условия на остаток.
func (r *orderRepository) missReason(ctx context.Context, id primitive.ObjectID, patch domain.OrderPatch) error {
	if patch.ExpectBalance == nil {
		return domain.ErrOrderNotFound
	}
	n, err := r.coll.CountDocuments(ctx, byID(id))
	if err != nil {
		return domain.NewStoreError("orders.update", err)
	}
	if n == 0 {
		return domain.ErrOrderNotFound
	}
	return domain.ErrBalanceChanged
}

func (r *orderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.store.do(ctx, "orders.delete", func(ctx context.Context) error {
		res, err := r.coll.DeleteOne(ctx, byID(id))
		if err != nil {
			return domain.NewStoreError("orders.delete", err)
		}
		if res.DeletedCount == 0 {
			return domain.ErrOrderNotFound
		}
		return nil
	})
}

func decodeOrder(raw bson.D) (domain.Order, error) {
	doc, err := codec.DecodeDocument(raw)
	if err != nil {
		return domain.Order{}, err
	}
	return codec.OrderFromDocument(doc)
}

var _ domain.OrderRepository = (*orderRepository)(nil)
