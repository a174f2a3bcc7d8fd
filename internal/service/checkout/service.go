// Package checkout реализует кассовые сценарии химчистки поверх репозиториев:
// приём вещей, оплату, выдачу и аннулирование заказа.
package checkout

import (
	"context"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
	"github.com/vladislavdragonenkov/cleanerspos/internal/metrics"
)

// Service - кассовые операции. Все зависимости передаются явно, глобального состояния нет.
type Service struct {
	customers domain.CustomerRepository
	orders    domain.OrderRepository
	sequence  domain.SequenceAllocator
	events    domain.EventPublisher
	metrics   *metrics.CheckoutMetrics
	now       func() time.Time
	logger    *log.Entry
}

// Option настраивает Service.
type Option func(*Service)

// WithEventPublisher включает публикацию событий заказа.
func WithEventPublisher(p domain.EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithMetrics подключает бизнес-метрики.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник времени (тесты).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(entry *log.Entry) Option {
	return func(s *Service) {
		if entry != nil {
			s.logger = entry
		}
	}
}

// New создаёт сервис.
func New(customers domain.CustomerRepository, orders domain.OrderRepository, sequence domain.SequenceAllocator, opts ...Option) *Service {
	s := &Service{
		customers: customers,
		orders:    orders,
		sequence:  sequence,
		now:       time.Now,
		logger:    log.WithField("component", "checkout"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterCustomer создаёт клиента и возвращает его с назначенным идентификатором.
func (s *Service) RegisterCustomer(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	id, err := s.customers.Add(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	customer.ID = id
	s.metrics.RecordCustomerRegistered()
	s.logger.WithField("customer_id", id.Hex()).Info("customer registered")
	return customer, nil
}

// FindCustomers ищет клиентов; пробелы по краям критериев отбрасываются.
func (s *Service) FindCustomers(ctx context.Context, criteria domain.CustomerSearch) ([]domain.Customer, error) {
	return s.customers.Search(ctx, criteria.Normalize())
}

// GetCustomer возвращает клиента по идентификатору.
func (s *Service) GetCustomer(ctx context.Context, id primitive.ObjectID) (domain.Customer, error) {
	return s.customers.Get(ctx, id)
}

// UpdateCustomer применяет патч и возвращает актуальное состояние клиента.
func (s *Service) UpdateCustomer(ctx context.Context, id primitive.ObjectID, patch domain.CustomerPatch) (domain.Customer, error) {
	if _, err := s.customers.Update(ctx, id, patch); err != nil {
		return domain.Customer{}, err
	}
	return s.customers.Get(ctx, id)
}

// DeleteCustomer удаляет клиента. Заказы клиента не трогаются.
func (s *Service) DeleteCustomer(ctx context.Context, id primitive.ObjectID) error {
	return s.customers.Delete(ctx, id)
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, id primitive.ObjectID) (domain.Order, error) {
	return s.orders.Get(ctx, id)
}

// DeleteOrder удаляет заказ.
func (s *Service) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	return s.orders.Delete(ctx, id)
}

// CustomerOrders возвращает заказы клиента, самые свежие первыми.
// Заказы с нераспознанной датой сдачи идут в конце.
func (s *Service) CustomerOrders(ctx context.Context, customerID primitive.ObjectID) ([]domain.Order, error) {
	orders, err := s.orders.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		ti, okI := orders[i].DroppedOffAt()
		tj, okJ := orders[j].DroppedOffAt()
		if okI != okJ {
			return okI
		}
		return ti.After(tj)
	})
	return orders, nil
}

// MarkPickedUp фиксирует выдачу заказа клиенту.
func (s *Service) MarkPickedUp(ctx context.Context, orderID primitive.ObjectID, employee string) (domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Voided() {
		return domain.Order{}, domain.ErrOrderVoided
	}

	now := s.timestamp()
	status := domain.OrderStatusPickedUp
	patch := domain.OrderPatch{
		PickupDate:     &now,
		PickupEmployee: &employee,
		Status:         &status,
	}
	updated, err := s.applyPatch(ctx, orderID, patch)
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.RecordOrderPickedUp()
	s.publish(ctx, domain.OrderEventPickedUp, updated)
	return updated, nil
}

// VoidOrder аннулирует заказ. Повторное аннулирование запрещено.
func (s *Service) VoidOrder(ctx context.Context, orderID primitive.ObjectID, employee string) (domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Voided() {
		return domain.Order{}, domain.ErrOrderVoided
	}

	now := s.timestamp()
	status := domain.OrderStatusVoided
	updated, err := s.applyPatch(ctx, orderID, domain.OrderPatch{
		VoidDate:     &now,
		VoidEmployee: &employee,
		Status:       &status,
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.metrics.RecordOrderVoided()
	s.publish(ctx, domain.OrderEventVoided, updated)
	s.logger.WithField("order_id", orderID.Hex()).WithField("employee", employee).Info("order voided")
	return updated, nil
}

func (s *Service) applyPatch(ctx context.Context, orderID primitive.ObjectID, patch domain.OrderPatch) (domain.Order, error) {
	if _, err := s.orders.Update(ctx, orderID, patch); err != nil {
		return domain.Order{}, err
	}
	return s.orders.Get(ctx, orderID)
}

// publish отправляет событие; сбой публикации не отменяет уже записанную операцию.
func (s *Service) publish(ctx context.Context, eventType domain.OrderEventType, order domain.Order) {
	if s.events == nil {
		return
	}
	event := domain.NewOrderEvent(eventType, order, s.now())
	if err := s.events.Publish(ctx, event); err != nil {
		s.metrics.RecordEventFailure()
		s.logger.WithError(err).
			WithField("order_id", order.ID.Hex()).
			WithField("event_type", string(eventType)).
			Warn("failed to publish order event")
	}
}

func (s *Service) timestamp() string {
	return s.now().Format(domain.DateLayout)
}

func ticketNumberFor(subOrders []domain.SubOrder) string {
	if len(subOrders) == 0 {
		return ""
	}
	return fmt.Sprintf("%d", subOrders[0].ID)
}
