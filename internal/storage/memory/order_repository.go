package memory

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/cleanerspos/internal/codec"
	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

// orderRepositoryInMemory - простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	db *Database
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository(db *Database) domain.OrderRepository {
	return &orderRepositoryInMemory{db: db}
}

// Add сохраняет заказ целиком, если он проходит валидацию.
func (r *orderRepositoryInMemory) Add(ctx context.Context, order domain.Order) (primitive.ObjectID, error) {
	if err := order.Validate(); err != nil {
		return primitive.NilObjectID, err
	}
	doc, err := codec.OrderToDocument(order)
	if err != nil {
		return primitive.NilObjectID, &domain.ValidationError{Entity: "order", Reason: err.Error()}
	}
	if err := ctx.Err(); err != nil {
		return primitive.NilObjectID, domain.NewStoreError("orders.insert", err)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return insert(r.db.orders, "orders.insert", doc)
}

// Get возвращает заказ или ErrOrderNotFound.
func (r *orderRepositoryInMemory) Get(ctx context.Context, id primitive.ObjectID) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, domain.NewStoreError("orders.get", err)
	}

	r.db.mu.RLock()
	doc, ok := r.db.orders[id]
	r.db.mu.RUnlock()
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	order, err := codec.OrderFromDocument(doc)
	if err != nil {
		return domain.Order{}, domain.NewStoreError("orders.get", err)
	}
	return order, nil
}

// ListByCustomer возвращает все заказы клиента в произвольном порядке.
func (r *orderRepositoryInMemory) ListByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("orders.list", err)
	}

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, doc := range r.db.orders {
		owner, err := doc.ObjectID(codec.FieldCustomerID)
		if err != nil {
			return nil, domain.NewStoreError("orders.list", err)
		}
		if owner != customerID {
			continue
		}
		order, err := codec.OrderFromDocument(doc)
		if err != nil {
			return nil, domain.NewStoreError("orders.list", err)
		}
		result = append(result, order)
	}
	return result, nil
}

// Update применяет патч; заметка дописывается к текущему значению под той же блокировкой.
func (r *orderRepositoryInMemory) Update(ctx context.Context, id primitive.ObjectID, patch domain.OrderPatch) (bool, error) {
	if err := patch.Validate(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, domain.NewStoreError("orders.update", err)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.orders[id]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if patch.ExpectBalance != nil {
		balance, err := current.Float(codec.FieldBalance)
		if err != nil {
			return false, domain.NewStoreError("orders.update", err)
		}
		if balance != patch.ExpectBalance.InexactFloat64() {
			return false, domain.ErrBalanceChanged
		}
	}

	set := codec.OrderPatchDocument(patch)
	if patch.AppendNote != "" {
		note, err := current.String(codec.FieldOrderNote)
		if err != nil {
			return false, domain.NewStoreError("orders.update", err)
		}
		set[codec.FieldOrderNote] = codec.String(domain.AppendedNote(note, patch.AppendNote))
	}

	next, modified := applySet(current, set)
	r.db.orders[id] = next
	return modified, nil
}

// Delete удаляет заказ или возвращает ErrOrderNotFound.
func (r *orderRepositoryInMemory) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("orders.delete", err)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.db.orders, id)
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
