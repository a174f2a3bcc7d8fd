package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation - обязательное поле не заполнено; обнаруживается локально, без обращения к хранилищу.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound - документ с указанным идентификатором отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrStore - сбой подключения, протокола или сервера хранилища.
	ErrStore = errors.New("store failure")
	// ErrConflict - документ изменился между чтением и условной записью.
	ErrConflict = errors.New("concurrent modification")

	// ErrCustomerNotFound возвращается, если клиент не найден в репозитории.
	ErrCustomerNotFound = fmt.Errorf("customer %w", ErrNotFound)
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = fmt.Errorf("order %w", ErrNotFound)
	// ErrBalanceChanged - остаток заказа уже не равен OrderPatch.ExpectBalance.
	ErrBalanceChanged = fmt.Errorf("order balance: %w", ErrConflict)

	// ErrInvalidID - строка не является корректным идентификатором хранилища.
	ErrInvalidID = fmt.Errorf("%w: invalid identifier", ErrValidation)
	// ErrEmptyPatch - частичное обновление не содержит ни одного поля.
	ErrEmptyPatch = fmt.Errorf("%w: nothing to update", ErrValidation)

	// Ошибки инвариантов заказа.
	ErrCustomerRequired     = errors.New("customerId is required")
	ErrSubOrdersRequired    = errors.New("order must contain at least one sub-order")
	ErrSubOrderTypeRequired = errors.New("sub-order type is required")
	ErrItemsRequired        = errors.New("sub-order must contain at least one item")
	ErrItemQtyInvalid       = errors.New("item quantity must be greater than zero")
	ErrItemPriceInvalid     = errors.New("item price must be non-negative")
	ErrSubOrderTotal        = errors.New("sub-order total does not match items sum")
	ErrOrderTotalMismatch   = errors.New("order total does not match sub-orders sum")
	ErrBalanceOutOfRange    = errors.New("balance must be between zero and order total")

	// ErrPaymentInvalid - сумма платежа не положительна или превышает остаток.
	ErrPaymentInvalid = fmt.Errorf("%w: payment amount must be positive and must not exceed the balance", ErrValidation)
	// ErrPaymentTypeRequired - не указан способ оплаты.
	ErrPaymentTypeRequired = fmt.Errorf("%w: payment type is required", ErrValidation)
	// ErrStoreCreditInsufficient - у клиента недостаточно store credit.
	ErrStoreCreditInsufficient = fmt.Errorf("%w: insufficient store credit", ErrValidation)
	// ErrOrderVoided - заказ уже аннулирован, изменения запрещены.
	ErrOrderVoided = fmt.Errorf("%w: order is voided", ErrValidation)
	// ErrOrderAlreadyPaid - заказ уже полностью оплачен.
	ErrOrderAlreadyPaid = fmt.Errorf("%w: order is already paid", ErrValidation)
)

// ValidationError описывает незаполненные обязательные поля сущности.
type ValidationError struct {
	Entity string
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Entity)
	b.WriteString(": validation failed")
	if len(e.Fields) > 0 {
		b.WriteString(": missing ")
		b.WriteString(strings.Join(e.Fields, ", "))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error { return ErrValidation }

// StoreError оборачивает ошибку драйвера хранилища с указанием операции.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is делает любую StoreError эквивалентной ErrStore.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// NewStoreError создаёт StoreError; nil остаётся nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsNotFound проверяет, что документ отсутствует.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation проверяет, что ошибка обнаружена локальной валидацией.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsStoreFailure проверяет, что ошибка пришла от хранилища.
func IsStoreFailure(err error) bool {
	return errors.Is(err, ErrStore)
}

// IsConflict проверяет, что условная запись не прошла из-за параллельного изменения.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
