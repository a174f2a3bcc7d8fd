package codec_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/cleanerspos/internal/codec"
	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

func sampleOrder() domain.Order {
	return domain.Order{
		ID:         primitive.NewObjectID(),
		CustomerID: primitive.NewObjectID(),
		Store:      "Sparkle",
		SubOrders: []domain.SubOrder{
			{
				ID:   1000,
				Type: "Dryclean",
				Items: []domain.Item{
					{Name: "Shirt", Price: decimal.RequireFromString("3.50"), Quantity: 2},
				},
				Total: decimal.RequireFromString("7"),
			},
		},
		OrderTotal:      decimal.RequireFromString("7"),
		Balance:         decimal.RequireFromString("7"),
		Status:          domain.OrderStatusDroppedOff,
		TicketNumber:    "1000",
		DropoffDate:     "2024-03-01 10:15:00",
		DropoffEmployee: "kim",
		OrderNote:       "no starch",
	}
}

func TestCustomerMappingRoundTrip(t *testing.T) {
	c := domain.Customer{
		ID:                 primitive.NewObjectID(),
		FirstName:          "Ann",
		LastName:           "Lee",
		PhoneNumber:        "555-0100",
		Email:              "ann@example.com",
		Address:            domain.Address{Street: "1 Main", City: "Springfield", State: "IL", Zip: "62701"},
		Note:               "prefers hangers",
		Balance:            decimal.RequireFromString("-12.25"),
		StoreCreditBalance: decimal.RequireFromString("5"),
	}

	doc := codec.CustomerToDocument(c)
	decoded, err := codec.CustomerFromDocument(doc)
	require.NoError(t, err)

	require.Equal(t, c.ID, decoded.ID)
	require.Equal(t, c.Address, decoded.Address)
	require.Equal(t, c.FullName(), decoded.FullName())
	require.True(t, c.Balance.Equal(decoded.Balance))
	require.True(t, c.StoreCreditBalance.Equal(decoded.StoreCreditBalance))
}

func TestCustomerToDocumentOmitsZeroID(t *testing.T) {
	doc := codec.CustomerToDocument(domain.Customer{FirstName: "A", LastName: "B"})
	_, ok := doc[codec.FieldID]
	require.False(t, ok)
}

func TestCustomerFromDocumentDefaultsMissingFields(t *testing.T) {
	c, err := codec.CustomerFromDocument(codec.Document{
		codec.FieldFirstName: codec.String("Ann"),
	})
	require.NoError(t, err)
	require.Equal(t, "Ann", c.FirstName)
	require.Empty(t, c.LastName)
	require.True(t, c.Balance.IsZero())
	require.Equal(t, domain.Address{}, c.Address)
}

func TestOrderMappingRoundTrip(t *testing.T) {
	o := sampleOrder()

	doc, err := codec.OrderToDocument(o)
	require.NoError(t, err)
	require.True(t, doc[codec.FieldVoidDate].IsNull())
	require.True(t, doc[codec.FieldVoidEmployee].IsNull())

	decoded, err := codec.OrderFromDocument(doc)
	require.NoError(t, err)
	require.Equal(t, o.ID, decoded.ID)
	require.Equal(t, o.CustomerID, decoded.CustomerID)
	require.Nil(t, decoded.VoidDate)
	require.Len(t, decoded.SubOrders, 1)
	require.Equal(t, uint64(1000), decoded.SubOrders[0].ID)
	require.Equal(t, "Shirt", decoded.SubOrders[0].Items[0].Name)
	require.Equal(t, 2, decoded.SubOrders[0].Items[0].Quantity)
	require.True(t, o.SubOrders[0].Items[0].Price.Equal(decoded.SubOrders[0].Items[0].Price))
	require.True(t, o.OrderTotal.Equal(decoded.OrderTotal))
	require.Empty(t, decoded.ValidateInvariants())
}

func TestOrderMappingKeepsVoidFields(t *testing.T) {
	o := sampleOrder()
	date, who := "2024-03-02 09:00:00", "kim"
	o.VoidDate, o.VoidEmployee = &date, &who

	doc, err := codec.OrderToDocument(o)
	require.NoError(t, err)
	decoded, err := codec.OrderFromDocument(doc)
	require.NoError(t, err)
	require.NotNil(t, decoded.VoidDate)
	require.Equal(t, date, *decoded.VoidDate)
	require.True(t, decoded.Voided())
}

func TestOrderFromDocumentRejectsWrongKinds(t *testing.T) {
	doc, err := codec.OrderToDocument(sampleOrder())
	require.NoError(t, err)
	doc[codec.FieldSubOrders] = codec.List(codec.String("oops"))

	_, err = codec.OrderFromDocument(doc)
	require.ErrorIs(t, err, codec.ErrKindMismatch)
}

func TestPatchDocuments(t *testing.T) {
	phone := "555"
	balance := decimal.RequireFromString("1.5")
	cdoc := codec.CustomerPatchDocument(domain.CustomerPatch{PhoneNumber: &phone, Balance: &balance})
	require.Equal(t, []string{codec.FieldBalance, codec.FieldPhoneNumber}, cdoc.Keys())

	paid := domain.OrderStatusPaid
	odoc := codec.OrderPatchDocument(domain.OrderPatch{Status: &paid, AppendNote: "Check #12"})
	require.Equal(t, []string{codec.FieldStatus}, odoc.Keys())
}
