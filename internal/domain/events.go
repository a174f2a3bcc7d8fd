package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderEventType - тип события заказа.
type OrderEventType string

const (
	OrderEventCreated  OrderEventType = "order.created"
	OrderEventPaid     OrderEventType = "order.paid"
	OrderEventPickedUp OrderEventType = "order.picked_up"
	OrderEventVoided   OrderEventType = "order.voided"
)

// OrderEvent - снимок ключевых полей заказа на момент события.
type OrderEvent struct {
	ID         string         `json:"id"`
	Type       OrderEventType `json:"type"`
	OrderID    string         `json:"order_id"`
	CustomerID string         `json:"customer_id"`
	Store      string         `json:"store,omitempty"`
	Status     string         `json:"status"`
	OrderTotal string         `json:"order_total"`
	Balance    string         `json:"balance"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewOrderEvent создаёт событие по текущему состоянию заказа.
func NewOrderEvent(eventType OrderEventType, order Order, at time.Time) OrderEvent {
	return OrderEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		OrderID:    order.ID.Hex(),
		CustomerID: order.CustomerID.Hex(),
		Store:      order.Store,
		Status:     order.Status,
		OrderTotal: order.OrderTotal.StringFixed(2),
		Balance:    order.Balance.StringFixed(2),
		OccurredAt: at.UTC(),
	}
}
