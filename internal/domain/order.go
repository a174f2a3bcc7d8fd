package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout - формат дат заказа (dropoff, pickup, payment, void).
const DateLayout = "2006-01-02 15:04:05"

// Статусы заказа, которые выставляет checkout. Поле Status остаётся свободным текстом.
const (
	OrderStatusDroppedOff    = "dropped_off"
	OrderStatusPartiallyPaid = "partially_paid"
	OrderStatusPaid          = "paid"
	OrderStatusPickedUp      = "picked_up"
	OrderStatusVoided        = "voided"
)

// Способы оплаты, которые предлагает кассовый экран.
const (
	PaymentTypeCash        = "Cash"
	PaymentTypeCreditCard  = "Credit Card"
	PaymentTypeCheck       = "Check"
	PaymentTypeStoreCredit = "Store Credit"
)

// OrderState - производное состояние оплаты заказа.
type OrderState string

const (
	// OrderStateOpen - ничего не оплачено: balance == orderTotal.
	OrderStateOpen OrderState = "open"
	// OrderStatePartiallyPaid - 0 < balance < orderTotal.
	OrderStatePartiallyPaid OrderState = "partially_paid"
	// OrderStatePaid - balance == 0.
	OrderStatePaid OrderState = "paid"
)

// Item - позиция внутри подзаказа, собственной идентичности не имеет.
type Item struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// Total возвращает price * quantity.
func (i Item) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// SubOrder группирует вещи одной категории (например, "Dryclean") под отдельным номером квитанции.
type SubOrder struct {
	// ID выдаёт SequenceAllocator; номера не переиспользуются.
	ID    uint64
	Type  string `validate:"required"`
	Items []Item `validate:"required"`
	Total decimal.Decimal
}

// ItemsTotal считает сумму позиций подзаказа.
func (s SubOrder) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range s.Items {
		sum = sum.Add(item.Total())
	}
	return sum
}

// Order - снимок корзины на момент сдачи вещей. Позиции после создания не меняются,
// меняются только поля оплаты, выдачи, готовности и аннулирования.
type Order struct {
	ID           primitive.ObjectID
	CustomerID   primitive.ObjectID `validate:"required"`
	Store        string
	SubOrders    []SubOrder `validate:"required,dive"`
	OrderTotal   decimal.Decimal
	Balance      decimal.Decimal
	Status       string
	TicketNumber string

	DropoffDate     string
	DropoffEmployee string
	PickupDate      string
	PickupEmployee  string
	PaymentDate     string
	PaymentType     string
	PaymentEmployee string
	// VoidDate и VoidEmployee равны nil, пока заказ не аннулирован.
	VoidDate     *string
	VoidEmployee *string

	OrderNote      string
	RackNumber     string
	OrderReadyDate string
}

// Validate проверяет обязательные для записи поля: клиент, подзаказы, тип и позиции каждого подзаказа.
func (o *Order) Validate() error {
	return validateStruct("order", o)
}

// ValidateInvariants проверяет денежные инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID.IsZero() {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.SubOrders) == 0 {
		errs = append(errs, ErrSubOrdersRequired)
	}

	calc := decimal.Zero
	for _, sub := range o.SubOrders {
		if sub.Type == "" {
			errs = append(errs, ErrSubOrderTypeRequired)
		}
		if len(sub.Items) == 0 {
			errs = append(errs, ErrItemsRequired)
		}
		for _, item := range sub.Items {
			if item.Quantity <= 0 {
				errs = append(errs, ErrItemQtyInvalid)
			}
			if item.Price.IsNegative() {
				errs = append(errs, ErrItemPriceInvalid)
			}
		}
		if !sub.ItemsTotal().Equal(sub.Total) {
			errs = append(errs, ErrSubOrderTotal)
		}
		calc = calc.Add(sub.Total)
	}
	if !calc.Equal(o.OrderTotal) {
		errs = append(errs, ErrOrderTotalMismatch)
	}
	if o.Balance.IsNegative() || o.Balance.GreaterThan(o.OrderTotal) {
		errs = append(errs, ErrBalanceOutOfRange)
	}

	return errs
}

// State выводит состояние оплаты из balance и orderTotal.
func (o Order) State() OrderState {
	switch {
	case !o.Balance.IsPositive():
		return OrderStatePaid
	case o.Balance.LessThan(o.OrderTotal):
		return OrderStatePartiallyPaid
	default:
		return OrderStateOpen
	}
}

// Voided сообщает, что заказ аннулирован (ось, независимая от оплаты).
func (o Order) Voided() bool {
	return o.VoidDate != nil
}

// DroppedOffAt разбирает DropoffDate; ok=false, если дата пустая или в другом формате.
func (o Order) DroppedOffAt() (time.Time, bool) {
	if o.DropoffDate == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, o.DropoffDate, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// OrderPatch - разрешённые изменения заказа после создания. nil означает «поле не меняется».
// Подзаказы и позиции сюда намеренно не входят.
type OrderPatch struct {
	PaymentType     *string
	PaymentDate     *string
	PaymentEmployee *string
	Balance         *decimal.Decimal
	Status          *string

	PickupDate     *string
	PickupEmployee *string
	RackNumber     *string
	OrderReadyDate *string

	VoidDate     *string
	VoidEmployee *string

	// AppendNote дописывается к orderNote на стороне хранилища; пустая строка - без изменений.
	AppendNote string

	// ExpectBalance - условие, а не изменение: патч применяется, только если
	// текущий остаток равен этому значению, иначе ErrBalanceChanged.
	ExpectBalance *decimal.Decimal
}

// IsEmpty сообщает, что в патче нет ни одного изменения.
func (p OrderPatch) IsEmpty() bool {
	return p.PaymentType == nil && p.PaymentDate == nil && p.PaymentEmployee == nil &&
		p.Balance == nil && p.Status == nil && p.PickupDate == nil &&
		p.PickupEmployee == nil && p.RackNumber == nil && p.OrderReadyDate == nil &&
		p.VoidDate == nil && p.VoidEmployee == nil && p.AppendNote == ""
}

// Validate запрещает пустой патч и отрицательный баланс.
func (p OrderPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Balance != nil && p.Balance.IsNegative() {
		return &ValidationError{Entity: "order patch", Reason: "balance must be non-negative"}
	}
	return nil
}

// AppendedNote склеивает существующую заметку и добавку так же, как это делает хранилище.
func AppendedNote(current, addition string) string {
	if addition == "" {
		return current
	}
	if current == "" {
		return addition
	}
	return current + NoteSeparator + addition
}

// NoteSeparator разделяет части orderNote.
const NoteSeparator = "\n"
