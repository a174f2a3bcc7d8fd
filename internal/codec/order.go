package codec

import (
	"fmt"
	"math"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

// Имена полей документа заказа.
const (
	FieldCustomerID      = "customerId"
	FieldStore           = "store"
	FieldSubOrders       = "subOrders"
	FieldOrderTotal      = "orderTotal"
	FieldStatus          = "status"
	FieldTicketNumber    = "ticketNumber"
	FieldDropoffDate     = "dropoffDate"
	FieldDropoffEmployee = "dropoffEmployee"
	FieldPickupDate      = "pickupDate"
	FieldPickupEmployee  = "pickupEmployee"
	FieldPaymentDate     = "paymentDate"
	FieldPaymentType     = "paymentType"
	FieldPaymentEmployee = "paymentEmployee"
	FieldVoidDate        = "voidDate"
	FieldVoidEmployee    = "voidEmployee"
	FieldOrderNote       = "orderNote"
	FieldRackNumber      = "rackNumber"
	FieldOrderReadyDate  = "orderReadyDate"

	FieldSubOrderID = "id"
	FieldType       = "type"
	FieldItems      = "items"
	FieldTotal      = "total"

	FieldName     = "name"
	FieldPrice    = "price"
	FieldQuantity = "quantity"
)

// OrderToDocument строит документ заказа. voidDate/voidEmployee пишутся явным null,
// пока заказ не аннулирован.
func OrderToDocument(o domain.Order) (Document, error) {
	subs := make([]Value, 0, len(o.SubOrders))
	for i, sub := range o.SubOrders {
		if sub.ID > math.MaxInt64 {
			return nil, fmt.Errorf("sub-order %d: %w: %d", i, ErrIntOverflow, sub.ID)
		}
		items := make([]Value, 0, len(sub.Items))
		for _, item := range sub.Items {
			items = append(items, Map(Document{
				FieldName:     String(item.Name),
				FieldPrice:    Money(item.Price),
				FieldQuantity: Int(int64(item.Quantity)),
			}))
		}
		subs = append(subs, Map(Document{
			FieldSubOrderID: Int(int64(sub.ID)),
			FieldType:       String(sub.Type),
			FieldItems:      List(items...),
			FieldTotal:      Money(sub.Total),
		}))
	}

	doc := Document{
		FieldCustomerID:      ObjectID(o.CustomerID),
		FieldStore:           String(o.Store),
		FieldSubOrders:       List(subs...),
		FieldOrderTotal:      Money(o.OrderTotal),
		FieldBalance:         Money(o.Balance),
		FieldStatus:          String(o.Status),
		FieldTicketNumber:    String(o.TicketNumber),
		FieldDropoffDate:     String(o.DropoffDate),
		FieldDropoffEmployee: String(o.DropoffEmployee),
		FieldPickupDate:      String(o.PickupDate),
		FieldPickupEmployee:  String(o.PickupEmployee),
		FieldPaymentDate:     String(o.PaymentDate),
		FieldPaymentType:     String(o.PaymentType),
		FieldPaymentEmployee: String(o.PaymentEmployee),
		FieldVoidDate:        NullableString(o.VoidDate),
		FieldVoidEmployee:    NullableString(o.VoidEmployee),
		FieldOrderNote:       String(o.OrderNote),
		FieldRackNumber:      String(o.RackNumber),
		FieldOrderReadyDate:  String(o.OrderReadyDate),
	}
	if !o.ID.IsZero() {
		doc[FieldID] = ObjectID(o.ID)
	}
	return doc, nil
}

// OrderFromDocument восстанавливает заказ вместе с подзаказами и позициями.
func OrderFromDocument(doc Document) (domain.Order, error) {
	r := reader{doc: doc}
	o := domain.Order{
		ID:              r.objectID(FieldID),
		CustomerID:      r.objectID(FieldCustomerID),
		Store:           r.string(FieldStore),
		OrderTotal:      moneyFrom(r.float(FieldOrderTotal)),
		Balance:         moneyFrom(r.float(FieldBalance)),
		Status:          r.string(FieldStatus),
		TicketNumber:    r.string(FieldTicketNumber),
		DropoffDate:     r.string(FieldDropoffDate),
		DropoffEmployee: r.string(FieldDropoffEmployee),
		PickupDate:      r.string(FieldPickupDate),
		PickupEmployee:  r.string(FieldPickupEmployee),
		PaymentDate:     r.string(FieldPaymentDate),
		PaymentType:     r.string(FieldPaymentType),
		PaymentEmployee: r.string(FieldPaymentEmployee),
		VoidDate:        r.nullableString(FieldVoidDate),
		VoidEmployee:    r.nullableString(FieldVoidEmployee),
		OrderNote:       r.string(FieldOrderNote),
		RackNumber:      r.string(FieldRackNumber),
		OrderReadyDate:  r.string(FieldOrderReadyDate),
	}
	subs := r.list(FieldSubOrders)
	if r.err != nil {
		return domain.Order{}, fmt.Errorf("decode order: %w", r.err)
	}

	if subs != nil {
		o.SubOrders = make([]domain.SubOrder, 0, len(subs))
	}
	for i, sv := range subs {
		subDoc, ok := sv.AsMap()
		if !ok {
			return domain.Order{}, fmt.Errorf("decode order: sub-order %d: %w", i, ErrKindMismatch)
		}
		sub, err := subOrderFromDocument(subDoc)
		if err != nil {
			return domain.Order{}, fmt.Errorf("decode order: sub-order %d: %w", i, err)
		}
		o.SubOrders = append(o.SubOrders, sub)
	}
	return o, nil
}

func subOrderFromDocument(doc Document) (domain.SubOrder, error) {
	r := reader{doc: doc}
	id := r.int(FieldSubOrderID)
	sub := domain.SubOrder{
		Type:  r.string(FieldType),
		Total: moneyFrom(r.float(FieldTotal)),
	}
	items := r.list(FieldItems)
	if r.err != nil {
		return domain.SubOrder{}, r.err
	}
	if id < 0 {
		return domain.SubOrder{}, fmt.Errorf("negative sub-order id %d", id)
	}
	sub.ID = uint64(id)

	if items != nil {
		sub.Items = make([]domain.Item, 0, len(items))
	}
	for j, iv := range items {
		itemDoc, ok := iv.AsMap()
		if !ok {
			return domain.SubOrder{}, fmt.Errorf("item %d: %w", j, ErrKindMismatch)
		}
		ir := reader{doc: itemDoc}
		item := domain.Item{
			Name:     ir.string(FieldName),
			Price:    moneyFrom(ir.float(FieldPrice)),
			Quantity: int(ir.int(FieldQuantity)),
		}
		if ir.err != nil {
			return domain.SubOrder{}, fmt.Errorf("item %d: %w", j, ir.err)
		}
		sub.Items = append(sub.Items, item)
	}
	return sub, nil
}

// OrderPatchDocument возвращает поля патча для $set. AppendNote сюда не входит:
// дописывание заметки каждый backend выполняет своим способом.
func OrderPatchDocument(p domain.OrderPatch) Document {
	doc := Document{}
	setString(doc, FieldPaymentType, p.PaymentType)
	setString(doc, FieldPaymentDate, p.PaymentDate)
	setString(doc, FieldPaymentEmployee, p.PaymentEmployee)
	setMoney(doc, FieldBalance, p.Balance)
	setString(doc, FieldStatus, p.Status)
	setString(doc, FieldPickupDate, p.PickupDate)
	setString(doc, FieldPickupEmployee, p.PickupEmployee)
	setString(doc, FieldRackNumber, p.RackNumber)
	setString(doc, FieldOrderReadyDate, p.OrderReadyDate)
	setString(doc, FieldVoidDate, p.VoidDate)
	setString(doc, FieldVoidEmployee, p.VoidEmployee)
	return doc
}
