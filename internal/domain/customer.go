package domain

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address - адрес клиента, все поля необязательные.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

// Customer описывает клиента химчистки.
type Customer struct {
	// ID назначает хранилище при создании, дальше не меняется.
	ID          primitive.ObjectID
	FirstName   string `validate:"required"`
	LastName    string `validate:"required"`
	PhoneNumber string
	Email       string
	Address     Address
	Note        string
	// Отрицательный баланс означает кредит в пользу клиента.
	Balance            decimal.Decimal
	StoreCreditBalance decimal.Decimal
}

// FullName возвращает имя и фамилию через пробел.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Validate проверяет обязательные поля перед созданием.
func (c *Customer) Validate() error {
	return validateStruct("customer", c)
}

// CustomerPatch - частичное обновление клиента. nil означает «поле не меняется».
type CustomerPatch struct {
	FirstName          *string
	LastName           *string
	PhoneNumber        *string
	Email              *string
	Address            *Address
	Note               *string
	Balance            *decimal.Decimal
	StoreCreditBalance *decimal.Decimal
}

// IsEmpty сообщает, что в патче нет ни одного поля.
func (p CustomerPatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.PhoneNumber == nil &&
		p.Email == nil && p.Address == nil && p.Note == nil &&
		p.Balance == nil && p.StoreCreditBalance == nil
}

// Validate запрещает пустой патч и затирание имени/фамилии пустой строкой.
func (p CustomerPatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	var fields []string
	if p.FirstName != nil && *p.FirstName == "" {
		fields = append(fields, "FirstName")
	}
	if p.LastName != nil && *p.LastName == "" {
		fields = append(fields, "LastName")
	}
	if len(fields) > 0 {
		return &ValidationError{Entity: "customer patch", Fields: fields}
	}
	return nil
}

// CustomerSearch - критерии нечёткого поиска. Пустое поле не ограничивает выборку.
type CustomerSearch struct {
	// FirstName и LastName ищутся как подстрока без учёта регистра.
	FirstName string
	LastName  string
	// Phone ищется как префикс без учёта регистра.
	Phone string
	// Ticket ищется как подстрока в ticketNumber заказов клиента.
	Ticket string
}

// Normalize обрезает пробелы по краям всех критериев.
func (s CustomerSearch) Normalize() CustomerSearch {
	return CustomerSearch{
		FirstName: strings.TrimSpace(s.FirstName),
		LastName:  strings.TrimSpace(s.LastName),
		Phone:     strings.TrimSpace(s.Phone),
		Ticket:    strings.TrimSpace(s.Ticket),
	}
}

// IsEmpty сообщает, что ни один критерий не задан.
func (s CustomerSearch) IsEmpty() bool {
	n := s.Normalize()
	return n.FirstName == "" && n.LastName == "" && n.Phone == "" && n.Ticket == ""
}
