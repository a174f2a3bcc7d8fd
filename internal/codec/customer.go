package codec

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

// Имена полей документа клиента.
const (
	FieldID                 = "_id"
	FieldFirstName          = "firstName"
	FieldLastName           = "lastName"
	FieldPhoneNumber        = "phoneNumber"
	FieldEmail              = "email"
	FieldAddress            = "address"
	FieldNote               = "note"
	FieldBalance            = "balance"
	FieldStoreCreditBalance = "storeCreditBalance"

	FieldStreet = "street"
	FieldCity   = "city"
	FieldState  = "state"
	FieldZip    = "zip"
)

// Money переводит денежную сумму в число документа.
func Money(d decimal.Decimal) Value {
	return Float(d.InexactFloat64())
}

// moneyFrom восстанавливает сумму из числа документа.
func moneyFrom(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// AddressToDocument строит вложенный документ адреса.
func AddressToDocument(a domain.Address) Document {
	return Document{
		FieldStreet: String(a.Street),
		FieldCity:   String(a.City),
		FieldState:  String(a.State),
		FieldZip:    String(a.Zip),
	}
}

func addressFromDocument(doc Document) (domain.Address, error) {
	r := reader{doc: doc}
	a := domain.Address{
		Street: r.string(FieldStreet),
		City:   r.string(FieldCity),
		State:  r.string(FieldState),
		Zip:    r.string(FieldZip),
	}
	if r.err != nil {
		return domain.Address{}, fmt.Errorf("address: %w", r.err)
	}
	return a, nil
}

// CustomerToDocument строит документ клиента. Нулевой ID не записывается.
func CustomerToDocument(c domain.Customer) Document {
	doc := Document{
		FieldFirstName:          String(c.FirstName),
		FieldLastName:           String(c.LastName),
		FieldPhoneNumber:        String(c.PhoneNumber),
		FieldEmail:              String(c.Email),
		FieldAddress:            Map(AddressToDocument(c.Address)),
		FieldNote:               String(c.Note),
		FieldBalance:            Money(c.Balance),
		FieldStoreCreditBalance: Money(c.StoreCreditBalance),
	}
	if !c.ID.IsZero() {
		doc[FieldID] = ObjectID(c.ID)
	}
	return doc
}

// CustomerFromDocument восстанавливает клиента; отсутствующие поля получают нулевые значения.
func CustomerFromDocument(doc Document) (domain.Customer, error) {
	r := reader{doc: doc}
	c := domain.Customer{
		ID:                 r.objectID(FieldID),
		FirstName:          r.string(FieldFirstName),
		LastName:           r.string(FieldLastName),
		PhoneNumber:        r.string(FieldPhoneNumber),
		Email:              r.string(FieldEmail),
		Note:               r.string(FieldNote),
		Balance:            moneyFrom(r.float(FieldBalance)),
		StoreCreditBalance: moneyFrom(r.float(FieldStoreCreditBalance)),
	}
	addr := r.nested(FieldAddress)
	if r.err != nil {
		return domain.Customer{}, fmt.Errorf("decode customer: %w", r.err)
	}
	if addr != nil {
		a, err := addressFromDocument(addr)
		if err != nil {
			return domain.Customer{}, fmt.Errorf("decode customer: %w", err)
		}
		c.Address = a
	}
	return c, nil
}

// CustomerPatchDocument возвращает только заданные поля патча для $set.
// Адрес заменяется целиком.
func CustomerPatchDocument(p domain.CustomerPatch) Document {
	doc := Document{}
	setString(doc, FieldFirstName, p.FirstName)
	setString(doc, FieldLastName, p.LastName)
	setString(doc, FieldPhoneNumber, p.PhoneNumber)
	setString(doc, FieldEmail, p.Email)
	setString(doc, FieldNote, p.Note)
	if p.Address != nil {
		doc[FieldAddress] = Map(AddressToDocument(*p.Address))
	}
	setMoney(doc, FieldBalance, p.Balance)
	setMoney(doc, FieldStoreCreditBalance, p.StoreCreditBalance)
	return doc
}

func setString(doc Document, key string, s *string) {
	if s != nil {
		doc[key] = String(*s)
	}
}

func setMoney(doc Document, key string, d *decimal.Decimal) {
	if d != nil {
		doc[key] = Money(*d)
	}
}
