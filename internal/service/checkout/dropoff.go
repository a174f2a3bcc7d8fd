package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

// CartItem - строка корзины на экране приёма.
type CartItem struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// CartCategory - раздел корзины (например, "Dryclean"). Каждый раздел становится подзаказом
// со своим номером квитанции.
type CartCategory struct {
	Type  string
	Items []CartItem
}

// Dropoff - всё, что кассир вводит при приёме вещей.
type Dropoff struct {
	// Customer без ID регистрируется как новый клиент.
	Customer   domain.Customer
	Store      string
	Employee   string
	Cart       []CartCategory
	Note       string
	RackNumber string
	ReadyDate  string
	// Prepayment - необязательная оплата сразу при приёме.
	Prepayment *Payment
}

// PlaceOrder собирает заказ из корзины, выдаёт номера подзаказов и сохраняет его.
func (s *Service) PlaceOrder(ctx context.Context, d Dropoff) (domain.Order, error) {
	if err := validateCart(d.Cart); err != nil {
		return domain.Order{}, err
	}
	if d.Prepayment != nil {
		if err := d.Prepayment.validateAgainst(cartTotal(d.Cart)); err != nil {
			return domain.Order{}, fmt.Errorf("prepayment: %w", err)
		}
	}

	customer := d.Customer
	if customer.ID.IsZero() {
		registered, err := s.RegisterCustomer(ctx, customer)
		if err != nil {
			return domain.Order{}, fmt.Errorf("register customer: %w", err)
		}
		customer = registered
	}

	order := domain.Order{
		CustomerID:      customer.ID,
		Store:           d.Store,
		Status:          domain.OrderStatusDroppedOff,
		DropoffDate:     s.timestamp(),
		DropoffEmployee: d.Employee,
		OrderNote:       d.Note,
		RackNumber:      d.RackNumber,
		OrderReadyDate:  d.ReadyDate,
	}

	for _, category := range d.Cart {
		id, err := s.sequence.GetThenIncrement(ctx)
		if err != nil {
			return domain.Order{}, fmt.Errorf("allocate sub-order id: %w", err)
		}
		sub := domain.SubOrder{ID: id, Type: category.Type}
		for _, item := range category.Items {
			sub.Items = append(sub.Items, domain.Item{Name: item.Name, Price: item.Price, Quantity: item.Quantity})
		}
		sub.Total = sub.ItemsTotal()
		order.SubOrders = append(order.SubOrders, sub)
		order.OrderTotal = order.OrderTotal.Add(sub.Total)
	}
	order.Balance = order.OrderTotal
	order.TicketNumber = ticketNumberFor(order.SubOrders)

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, &domain.ValidationError{Entity: "order", Reason: errors.Join(errs...).Error()}
	}

	id, err := s.orders.Add(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}
	order.ID = id

	s.metrics.RecordOrderPlaced()
	s.logger.WithField("order_id", id.Hex()).
		WithField("customer_id", customer.ID.Hex()).
		WithField("ticket", order.TicketNumber).
		Info("order placed")
	s.publish(ctx, domain.OrderEventCreated, order)

	if d.Prepayment != nil {
		paid, err := s.ApplyPayment(ctx, id, *d.Prepayment)
		if err != nil {
			// заказ уже сохранён, вызывающий получает его вместе с ошибкой оплаты
			return order, fmt.Errorf("prepayment: %w", err)
		}
		return paid, nil
	}
	return order, nil
}

// cartTotal - сумма корзины до выдачи номеров.
func cartTotal(cart []CartCategory) decimal.Decimal {
	total := decimal.Zero
	for _, category := range cart {
		for _, item := range category.Items {
			total = total.Add(domain.Item{Price: item.Price, Quantity: item.Quantity}.Total())
		}
	}
	return total
}

func validateCart(cart []CartCategory) error {
	if len(cart) == 0 {
		return &domain.ValidationError{Entity: "dropoff", Fields: []string{"Cart"}}
	}
	for i, category := range cart {
		if category.Type == "" {
			return &domain.ValidationError{Entity: "dropoff", Fields: []string{fmt.Sprintf("Cart[%d].Type", i)}}
		}
		if len(category.Items) == 0 {
			return &domain.ValidationError{Entity: "dropoff", Fields: []string{fmt.Sprintf("Cart[%d].Items", i)}}
		}
		for j, item := range category.Items {
			if item.Name == "" {
				return &domain.ValidationError{Entity: "dropoff", Fields: []string{fmt.Sprintf("Cart[%d].Items[%d].Name", i, j)}}
			}
			if item.Quantity <= 0 {
				return &domain.ValidationError{Entity: "dropoff", Reason: domain.ErrItemQtyInvalid.Error()}
			}
			if item.Price.IsNegative() {
				return &domain.ValidationError{Entity: "dropoff", Reason: domain.ErrItemPriceInvalid.Error()}
			}
		}
	}
	return nil
}
