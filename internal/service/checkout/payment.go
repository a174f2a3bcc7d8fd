package checkout

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

// Payment - оплата, принятая на кассе.
type Payment struct {
	Type     string
	Amount   decimal.Decimal
	Employee string
	// CheckNumber обязателен для оплаты чеком и попадает в заметку заказа.
	CheckNumber string
}

var paymentTypes = map[string]struct{}{
	domain.PaymentTypeCash:        {},
	domain.PaymentTypeCreditCard:  {},
	domain.PaymentTypeCheck:       {},
	domain.PaymentTypeStoreCredit: {},
}

func (p Payment) validate() error {
	if strings.TrimSpace(p.Type) == "" {
		return domain.ErrPaymentTypeRequired
	}
	if _, ok := paymentTypes[p.Type]; !ok {
		return &domain.ValidationError{Entity: "payment", Reason: "unsupported payment type " + p.Type}
	}
	if p.Type == domain.PaymentTypeCheck && strings.TrimSpace(p.CheckNumber) == "" {
		return &domain.ValidationError{Entity: "payment", Fields: []string{"CheckNumber"}}
	}
	if !p.Amount.IsPositive() {
		return domain.ErrPaymentInvalid
	}
	return nil
}

// validateAgainst проверяет платёж целиком локально, до любых обращений к хранилищу.
func (p Payment) validateAgainst(balance decimal.Decimal) error {
	if err := p.validate(); err != nil {
		return err
	}
	if p.Amount.GreaterThan(balance) {
		return domain.ErrPaymentInvalid
	}
	return nil
}

// ApplyPayment списывает сумму с остатка заказа. Оплата store credit уменьшает
// StoreCreditBalance клиента; при нехватке кредита заказ не меняется.
// Запись условная: если остаток успел измениться, возвращается ErrBalanceChanged.
func (s *Service) ApplyPayment(ctx context.Context, orderID primitive.ObjectID, p Payment) (domain.Order, error) {
	if err := p.validate(); err != nil {
		return domain.Order{}, err
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	switch {
	case order.Voided():
		return domain.Order{}, domain.ErrOrderVoided
	case order.State() == domain.OrderStatePaid:
		return domain.Order{}, domain.ErrOrderAlreadyPaid
	case p.Amount.GreaterThan(order.Balance):
		return domain.Order{}, domain.ErrPaymentInvalid
	}

	if p.Type == domain.PaymentTypeStoreCredit {
		if err := s.chargeStoreCredit(ctx, order.CustomerID, p.Amount); err != nil {
			return domain.Order{}, err
		}
	}

	balance := order.Balance.Sub(p.Amount)
	status := domain.OrderStatusPartiallyPaid
	if !balance.IsPositive() {
		status = domain.OrderStatusPaid
	}
	now := s.timestamp()
	patch := domain.OrderPatch{
		PaymentType:     &p.Type,
		PaymentDate:     &now,
		PaymentEmployee: &p.Employee,
		Balance:         &balance,
		Status:          &status,
		ExpectBalance:   &order.Balance,
	}
	if p.Type == domain.PaymentTypeCheck {
		patch.AppendNote = "Check #" + strings.TrimSpace(p.CheckNumber)
	}

	updated, err := s.applyPatch(ctx, orderID, patch)
	if err != nil {
		if p.Type == domain.PaymentTypeStoreCredit {
			// кредит уже списан, общей транзакции нет
			s.logger.WithError(err).
				WithField("order_id", orderID.Hex()).
				WithField("customer_id", order.CustomerID.Hex()).
				WithField("amount", p.Amount.StringFixed(2)).
				Error("store credit charged but order update failed")
		}
		return domain.Order{}, err
	}

	s.metrics.RecordPayment(p.Type, p.Amount.InexactFloat64())
	s.logger.WithField("order_id", orderID.Hex()).
		WithField("payment_type", p.Type).
		WithField("amount", p.Amount.StringFixed(2)).
		WithField("balance", balance.StringFixed(2)).
		Info("payment applied")
	s.publish(ctx, domain.OrderEventPaid, updated)
	return updated, nil
}

func (s *Service) chargeStoreCredit(ctx context.Context, customerID primitive.ObjectID, amount decimal.Decimal) error {
	customer, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return err
	}
	if customer.StoreCreditBalance.LessThan(amount) {
		return domain.ErrStoreCreditInsufficient
	}
	rest := customer.StoreCreditBalance.Sub(amount)
	_, err = s.customers.Update(ctx, customerID, domain.CustomerPatch{StoreCreditBalance: &rest})
	return err
}
