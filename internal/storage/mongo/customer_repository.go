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

type customerRepository struct {
	store  *Store
	coll   *mongo.Collection
	orders *mongo.Collection
}

func (r *customerRepository) Add(ctx context.Context, customer domain.Customer) (primitive.ObjectID, error) {
	if err := customer.Validate(); err != nil {
		return primitive.NilObjectID, err
	}

	var id primitive.ObjectID
	err := r.store.do(ctx, "customers.insert", func(ctx context.Context) error {
		res, err := r.coll.InsertOne(ctx, codec.EncodeDocument(codec.CustomerToDocument(customer)))
		if err != nil {
			return domain.NewStoreError("customers.insert", err)
		}
		oid, ok := res.InsertedID.(primitive.ObjectID)
		if !ok {
			return domain.NewStoreError("customers.insert", fmt.Errorf("unexpected inserted id type %T", res.InsertedID))
		}
		id = oid
		return nil
	})
	return id, err
}

func (r *customerRepository) Get(ctx context.Context, id primitive.ObjectID) (domain.Customer, error) {
	var customer domain.Customer
	err := r.store.do(ctx, "customers.get", func(ctx context.Context) error {
		var raw bson.D
		if err := r.coll.FindOne(ctx, byID(id)).Decode(&raw); err != nil {
			return notFoundOr("customers.get", err, domain.ErrCustomerNotFound)
		}
		c, err := decodeCustomer(raw)
		if err != nil {
			return domain.NewStoreError("customers.get", err)
		}
		customer = c
		return nil
	})
	return customer, err
}

func (r *customerRepository) Update(ctx context.Context, id primitive.ObjectID, patch domain.CustomerPatch) (bool, error) {
	if err := patch.Validate(); err != nil {
		return false, err
	}

	var modified bool
	err := r.store.do(ctx, "customers.update", func(ctx context.Context) error {
		update := bson.D{{Key: "$set", Value: codec.EncodeDocument(codec.CustomerPatchDocument(patch))}}
		res, err := r.coll.UpdateOne(ctx, byID(id), update)
		if err != nil {
			return domain.NewStoreError("customers.update", err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrCustomerNotFound
		}
		modified = res.ModifiedCount > 0
		return nil
	})
	return modified, err
}

func (r *customerRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.store.do(ctx, "customers.delete", func(ctx context.Context) error {
		res, err := r.coll.DeleteOne(ctx, byID(id))
		if err != nil {
			return domain.NewStoreError("customers.delete", err)
		}
		if res.DeletedCount == 0 {
			return domain.ErrCustomerNotFound
		}
		return nil
	})
}

// Search ищет клиентов. Номер квитанции хранится в заказах, поэтому сначала
// выбираются владельцы подходящих заказов, затем клиенты фильтруются по _id.
func (r *customerRepository) Search(ctx context.Context, criteria domain.CustomerSearch) ([]domain.Customer, error) {
	criteria = criteria.Normalize()

	var result []domain.Customer
	err := r.store.do(ctx, "customers.search", func(ctx context.Context) error {
		var owners []primitive.ObjectID
		if criteria.Ticket != "" {
			ids, err := r.ticketOwners(ctx, criteria.Ticket)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				result = []domain.Customer{}
				return nil
			}
			owners = ids
		}

		cur, err := r.coll.Find(ctx, customerFilter(criteria, owners))
		if err != nil {
			return domain.NewStoreError("customers.search", err)
		}
		defer cur.Close(ctx)

		found := make([]domain.Customer, 0)
		for cur.Next(ctx) {
			var raw bson.D
			if err := cur.Decode(&raw); err != nil {
				return domain.NewStoreError("customers.search", err)
			}
			c, err := decodeCustomer(raw)
			if err != nil {
				return domain.NewStoreError("customers.search", err)
			}
			found = append(found, c)
		}
		if err := cur.Err(); err != nil {
			return domain.NewStoreError("customers.search", err)
		}
		result = found
		return nil
	})
	return result, err
}

func (r *customerRepository) ticketOwners(ctx context.Context, ticket string) ([]primitive.ObjectID, error) {
	values, err := r.orders.Distinct(ctx, codec.FieldCustomerID, ticketFilter(ticket))
	if err != nil {
		return nil, domain.NewStoreError("customers.search", err)
	}
	owners := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			owners = append(owners, id)
		}
	}
	return owners, nil
}

func decodeCustomer(raw bson.D) (domain.Customer, error) {
	doc, err := codec.DecodeDocument(raw)
	if err != nil {
		return domain.Customer{}, err
	}
	return codec.CustomerFromDocument(doc)
}

func byID(id primitive.ObjectID) bson.D {
	return bson.D{{Key: codec.FieldID, Value: id}}
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
