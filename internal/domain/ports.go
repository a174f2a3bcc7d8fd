package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CustomerRepository описывает хранилище клиентов.
type CustomerRepository interface {
	// Add создаёт клиента и возвращает идентификатор, назначенный хранилищем.
	// Без имени или фамилии возвращает ValidationError, не обращаясь к хранилищу.
	Add(ctx context.Context, customer Customer) (primitive.ObjectID, error)
	// Get возвращает клиента или ErrCustomerNotFound.
	Get(ctx context.Context, id primitive.ObjectID) (Customer, error)
	// Update применяет только заданные поля. true - документ найден и изменён.
	Update(ctx context.Context, id primitive.ObjectID, patch CustomerPatch) (bool, error)
	// Delete удаляет клиента или возвращает ErrCustomerNotFound.
	Delete(ctx context.Context, id primitive.ObjectID) error
	// Search ищет клиентов по нечётким критериям, порядок не гарантируется.
	Search(ctx context.Context, criteria CustomerSearch) ([]Customer, error)
}

// OrderRepository описывает хранилище заказов.
type OrderRepository interface {
	// Add сохраняет заказ целиком; при ошибке валидации ничего не пишет.
	Add(ctx context.Context, order Order) (primitive.ObjectID, error)
	// Get возвращает заказ или ErrOrderNotFound.
	Get(ctx context.Context, id primitive.ObjectID) (Order, error)
	// ListByCustomer возвращает заказы клиента без гарантии порядка.
	ListByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]Order, error)
	// Update применяет патч оплаты/выдачи/аннулирования. true - документ найден и изменён.
	// С patch.ExpectBalance запись условная: при другом остатке ErrBalanceChanged.
	Update(ctx context.Context, id primitive.ObjectID, patch OrderPatch) (bool, error)
	// Delete удаляет заказ или возвращает ErrOrderNotFound.
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// SequenceAllocator выдаёт уникальные номера подзаказов.
// Реализация обязана инкрементировать счётчик одной атомарной операцией на стороне хранилища.
type SequenceAllocator interface {
	// GetThenIncrement возвращает текущее значение и увеличивает счётчик.
	// Если счётчика нет, он создаётся, и первой выдаётся стартовая величина.
	GetThenIncrement(ctx context.Context) (uint64, error)
	// Set безусловно перезаписывает счётчик (административный сброс).
	Set(ctx context.Context, value uint64) error
	// Get читает текущее значение без изменения.
	Get(ctx context.Context) (uint64, error)
}

// EventPublisher публикует события жизненного цикла заказа наружу.
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}
