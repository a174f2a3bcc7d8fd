package httpapi

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
	"github.com/vladislavdragonenkov/cleanerspos/internal/service/checkout"
)

// Деньги в ответах отдаются строкой с двумя знаками, во входе принимаются и строкой, и числом.

type addressDTO struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

func (a addressDTO) toDomain() domain.Address {
	return domain.Address{Street: a.Street, City: a.City, State: a.State, Zip: a.Zip}
}

func addressFrom(a domain.Address) addressDTO {
	return addressDTO{Street: a.Street, City: a.City, State: a.State, Zip: a.Zip}
}

type customerRequest struct {
	FirstName          string          `json:"firstName"`
	LastName           string          `json:"lastName"`
	PhoneNumber        string          `json:"phoneNumber"`
	Email              string          `json:"email"`
	Address            addressDTO      `json:"address"`
	Note               string          `json:"note"`
	Balance            decimal.Decimal `json:"balance"`
	StoreCreditBalance decimal.Decimal `json:"storeCreditBalance"`
}

func (r customerRequest) toDomain() domain.Customer {
	return domain.Customer{
		FirstName:          r.FirstName,
		LastName:           r.LastName,
		PhoneNumber:        r.PhoneNumber,
		Email:              r.Email,
		Address:            r.Address.toDomain(),
		Note:               r.Note,
		Balance:            r.Balance,
		StoreCreditBalance: r.StoreCreditBalance,
	}
}

type customerPatchRequest struct {
	FirstName          *string          `json:"firstName"`
	LastName           *string          `json:"lastName"`
	PhoneNumber        *string          `json:"phoneNumber"`
	Email              *string          `json:"email"`
	Address            *addressDTO      `json:"address"`
	Note               *string          `json:"note"`
	Balance            *decimal.Decimal `json:"balance"`
	StoreCreditBalance *decimal.Decimal `json:"storeCreditBalance"`
}

func (r customerPatchRequest) toDomain() domain.CustomerPatch {
	patch := domain.CustomerPatch{
		FirstName:          r.FirstName,
		LastName:           r.LastName,
		PhoneNumber:        r.PhoneNumber,
		Email:              r.Email,
		Note:               r.Note,
		Balance:            r.Balance,
		StoreCreditBalance: r.StoreCreditBalance,
	}
	if r.Address != nil {
		addr := r.Address.toDomain()
		patch.Address = &addr
	}
	return patch
}

type customerResponse struct {
	ID                 string     `json:"id"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	PhoneNumber        string     `json:"phoneNumber"`
	Email              string     `json:"email"`
	Address            addressDTO `json:"address"`
	Note               string     `json:"note"`
	Balance            string     `json:"balance"`
	StoreCreditBalance string     `json:"storeCreditBalance"`
}

func customerFrom(c domain.Customer) customerResponse {
	return customerResponse{
		ID:                 c.ID.Hex(),
		FirstName:          c.FirstName,
		LastName:           c.LastName,
		PhoneNumber:        c.PhoneNumber,
		Email:              c.Email,
		Address:            addressFrom(c.Address),
		Note:               c.Note,
		Balance:            money(c.Balance),
		StoreCreditBalance: money(c.StoreCreditBalance),
	}
}

type itemDTO struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type categoryDTO struct {
	Type  string    `json:"type"`
	Items []itemDTO `json:"items"`
}

type paymentRequest struct {
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Employee    string          `json:"employee"`
	CheckNumber string          `json:"checkNumber"`
}

func (r paymentRequest) toDomain() checkout.Payment {
	return checkout.Payment{Type: r.Type, Amount: r.Amount, Employee: r.Employee, CheckNumber: r.CheckNumber}
}

// dropoffRequest: либо customerId существующего клиента, либо customer для регистрации.
type dropoffRequest struct {
	CustomerID string           `json:"customerId"`
	Customer   *customerRequest `json:"customer"`
	Store      string           `json:"store"`
	Employee   string           `json:"employee"`
	Note       string           `json:"note"`
	RackNumber string           `json:"rackNumber"`
	ReadyDate  string           `json:"readyDate"`
	Cart       []categoryDTO    `json:"cart"`
	Prepayment *paymentRequest  `json:"prepayment"`
}

func (r dropoffRequest) cart() []checkout.CartCategory {
	out := make([]checkout.CartCategory, 0, len(r.Cart))
	for _, c := range r.Cart {
		category := checkout.CartCategory{Type: c.Type}
		for _, item := range c.Items {
			category.Items = append(category.Items, checkout.CartItem{Name: item.Name, Price: item.Price, Quantity: item.Quantity})
		}
		out = append(out, category)
	}
	return out
}

type employeeRequest struct {
	Employee string `json:"employee"`
}

type itemResponse struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

type subOrderResponse struct {
	ID    uint64         `json:"id"`
	Type  string         `json:"type"`
	Items []itemResponse `json:"items"`
	Total string         `json:"total"`
}

type orderResponse struct {
	ID              string             `json:"id"`
	CustomerID      string             `json:"customerId"`
	Store           string             `json:"store"`
	SubOrders       []subOrderResponse `json:"subOrders"`
	OrderTotal      string             `json:"orderTotal"`
	Balance         string             `json:"balance"`
	Status          string             `json:"status"`
	State           domain.OrderState  `json:"state"`
	Voided          bool               `json:"voided"`
	TicketNumber    string             `json:"ticketNumber"`
	DropoffDate     string             `json:"dropoffDate"`
	DropoffEmployee string             `json:"dropoffEmployee"`
	PickupDate      string             `json:"pickupDate"`
	PickupEmployee  string             `json:"pickupEmployee"`
	PaymentDate     string             `json:"paymentDate"`
	PaymentType     string             `json:"paymentType"`
	PaymentEmployee string             `json:"paymentEmployee"`
	VoidDate        *string            `json:"voidDate"`
	VoidEmployee    *string            `json:"voidEmployee"`
	OrderNote       string             `json:"orderNote"`
	RackNumber      string             `json:"rackNumber"`
	OrderReadyDate  string             `json:"orderReadyDate"`
}

func orderFrom(o domain.Order) orderResponse {
	subs := make([]subOrderResponse, 0, len(o.SubOrders))
	for _, sub := range o.SubOrders {
		items := make([]itemResponse, 0, len(sub.Items))
		for _, item := range sub.Items {
			items = append(items, itemResponse{Name: item.Name, Price: money(item.Price), Quantity: item.Quantity})
		}
		subs = append(subs, subOrderResponse{ID: sub.ID, Type: sub.Type, Items: items, Total: money(sub.Total)})
	}
	return orderResponse{
		ID:              o.ID.Hex(),
		CustomerID:      o.CustomerID.Hex(),
		Store:           o.Store,
		SubOrders:       subs,
		OrderTotal:      money(o.OrderTotal),
		Balance:         money(o.Balance),
		Status:          o.Status,
		State:           o.State(),
		Voided:          o.Voided(),
		TicketNumber:    o.TicketNumber,
		DropoffDate:     o.DropoffDate,
		DropoffEmployee: o.DropoffEmployee,
		PickupDate:      o.PickupDate,
		PickupEmployee:  o.PickupEmployee,
		PaymentDate:     o.PaymentDate,
		PaymentType:     o.PaymentType,
		PaymentEmployee: o.PaymentEmployee,
		VoidDate:        o.VoidDate,
		VoidEmployee:    o.VoidEmployee,
		OrderNote:       o.OrderNote,
		RackNumber:      o.RackNumber,
		OrderReadyDate:  o.OrderReadyDate,
	}
}

type sequenceDTO struct {
	Value uint64 `json:"value"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	OrderID string `json:"orderId,omitempty"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
