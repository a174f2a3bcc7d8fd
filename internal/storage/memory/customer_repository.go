package memory

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/cleanerspos/internal/codec"
	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

// customerRepositoryInMemory реализует CustomerRepository поверх Database.
type customerRepositoryInMemory struct {
	db *Database
}

// NewCustomerRepository возвращает in-memory репозиторий клиентов.
func NewCustomerRepository(db *Database) domain.CustomerRepository {
	return &customerRepositoryInMemory{db: db}
}

// Add валидирует клиента и сохраняет его с новым идентификатором.
func (r *customerRepositoryInMemory) Add(ctx context.Context, customer domain.Customer) (primitive.ObjectID, error) {
	if err := customer.Validate(); err != nil {
		return primitive.NilObjectID, err
	}
	if err := ctx.Err(); err != nil {
		return primitive.NilObjectID, domain.NewStoreError("customers.insert", err)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return insert(r.db.customers, "customers.insert", codec.CustomerToDocument(customer))
}

// Get возвращает клиента или ErrCustomerNotFound.
func (r *customerRepositoryInMemory) Get(ctx context.Context, id primitive.ObjectID) (domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Customer{}, domain.NewStoreError("customers.get", err)
	}

	r.db.mu.RLock()
	doc, ok := r.db.customers[id]
	r.db.mu.RUnlock()
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	customer, err := codec.CustomerFromDocument(doc)
	if err != nil {
		return domain.Customer{}, domain.NewStoreError("customers.get", err)
	}
	return customer, nil
}

// Update применяет только заданные поля патча.
func (r *customerRepositoryInMemory) Update(ctx context.Context, id primitive.ObjectID, patch domain.CustomerPatch) (bool, error) {
	if err := patch.Validate(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, domain.NewStoreError("customers.update", err)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.customers[id]
	if !ok {
		return false, domain.ErrCustomerNotFound
	}
	next, modified := applySet(current, codec.CustomerPatchDocument(patch))
	r.db.customers[id] = next
	return modified, nil
}

// Delete удаляет клиента; его заказы остаются нетронутыми.
func (r *customerRepositoryInMemory) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("customers.delete", err)
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.customers[id]; !ok {
		return domain.ErrCustomerNotFound
	}
	delete(r.db.customers, id)
	return nil
}

// Search повторяет семантику поиска MongoDB: подстрока без учёта регистра для имени,
// фамилии и номера квитанции, префикс для телефона.
func (r *customerRepositoryInMemory) Search(ctx context.Context, criteria domain.CustomerSearch) ([]domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("customers.search", err)
	}
	criteria = criteria.Normalize()

	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var owners map[primitive.ObjectID]struct{}
	if criteria.Ticket != "" {
		owners = r.ticketOwnersLocked(criteria.Ticket)
	}

	result := make([]domain.Customer, 0)
	for id, doc := range r.db.customers {
		if owners != nil {
			if _, ok := owners[id]; !ok {
				continue
			}
		}
		customer, err := codec.CustomerFromDocument(doc)
		if err != nil {
			return nil, domain.NewStoreError("customers.search", err)
		}
		if !containsFold(customer.FirstName, criteria.FirstName) ||
			!containsFold(customer.LastName, criteria.LastName) ||
			!hasPrefixFold(customer.PhoneNumber, criteria.Phone) {
			continue
		}
		result = append(result, customer)
	}
	return result, nil
}

// ticketOwnersLocked собирает клиентов, у которых есть заказ с подходящим номером квитанции.
func (r *customerRepositoryInMemory) ticketOwnersLocked(ticket string) map[primitive.ObjectID]struct{} {
	owners := make(map[primitive.ObjectID]struct{})
	for _, doc := range r.db.orders {
		number, err := doc.String(codec.FieldTicketNumber)
		if err != nil || !containsFold(number, ticket) {
			continue
		}
		customerID, err := doc.ObjectID(codec.FieldCustomerID)
		if err != nil {
			continue
		}
		owners[customerID] = struct{}{}
	}
	return owners
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
