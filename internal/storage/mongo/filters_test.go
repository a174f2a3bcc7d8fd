package mongo

import (
	"math"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

func TestCustomerFilter(t *testing.T) {
	owner := primitive.NewObjectID()

	tests := []struct {
		name     string
		criteria domain.CustomerSearch
		owners   []primitive.ObjectID
		want     bson.D
	}{
		{
			name:     "empty criteria matches everything",
			criteria: domain.CustomerSearch{},
			want:     bson.D{},
		},
		{
			name:     "names are case-insensitive substrings",
			criteria: domain.CustomerSearch{FirstName: "jo", LastName: "Doe"},
			want: bson.D{
				{Key: "firstName", Value: primitive.Regex{Pattern: "jo", Options: "i"}},
				{Key: "lastName", Value: primitive.Regex{Pattern: "Doe", Options: "i"}},
			},
		},
		{
			name:     "phone is anchored prefix",
			criteria: domain.CustomerSearch{Phone: "555"},
			want:     bson.D{{Key: "phoneNumber", Value: primitive.Regex{Pattern: "^555", Options: "i"}}},
		},
		{
			name:     "metacharacters are escaped",
			criteria: domain.CustomerSearch{FirstName: "a.b(c)", Phone: "+1"},
			want: bson.D{
				{Key: "firstName", Value: primitive.Regex{Pattern: `a\.b\(c\)`, Options: "i"}},
				{Key: "phoneNumber", Value: primitive.Regex{Pattern: `^\+1`, Options: "i"}},
			},
		},
		{
			name:     "ticket owners restrict ids",
			criteria: domain.CustomerSearch{Ticket: "42"},
			owners:   []primitive.ObjectID{owner},
			want:     bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: []primitive.ObjectID{owner}}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, customerFilter(tt.criteria, tt.owners))
		})
	}
}

func TestEscapedPatternsMatchLiterally(t *testing.T) {
	re := regexp.MustCompile("(?i)" + containsRegex("m.ry").Pattern)
	require.False(t, re.MatchString("Mary"))
	require.True(t, re.MatchString("Sam.Ryan"))

	prefix := regexp.MustCompile("(?i)" + prefixRegex("555").Pattern)
	require.True(t, prefix.MatchString("555-1234"))
	require.False(t, prefix.MatchString("212-5550"))
}

func TestOrderUpdateFilter(t *testing.T) {
	id := primitive.NewObjectID()
	require.Equal(t, bson.D{{Key: "_id", Value: id}}, orderUpdateFilter(id, domain.OrderPatch{}))

	expect := decimal.RequireFromString("28.50")
	require.Equal(t,
		bson.D{{Key: "_id", Value: id}, {Key: "balance", Value: 28.5}},
		orderUpdateFilter(id, domain.OrderPatch{ExpectBalance: &expect}),
	)
}

func TestOrderUpdate_PlainSet(t *testing.T) {
	status := domain.OrderStatusPaid
	balance := decimal.Zero

	update := orderUpdate(domain.OrderPatch{Status: &status, Balance: &balance})

	want := bson.D{{Key: "$set", Value: bson.D{
		{Key: "balance", Value: float64(0)},
		{Key: "status", Value: "paid"},
	}}}
	require.Equal(t, want, update)
}

func TestOrderUpdate_AppendNoteUsesPipeline(t *testing.T) {
	status := "$danger"
	update := orderUpdate(domain.OrderPatch{Status: &status, AppendNote: "Check #7"})

	pipeline, ok := update.(mongo.Pipeline)
	require.True(t, ok, "expected pipeline update, got %T", update)
	require.Len(t, pipeline, 1)

	set, ok := pipeline[0][0].Value.(bson.D)
	require.True(t, ok)
	require.Equal(t, "$set", pipeline[0][0].Key)
	require.Equal(t, bson.E{Key: "status", Value: bson.D{{Key: "$literal", Value: "$danger"}}}, set[0])
	require.Equal(t, "orderNote", set[1].Key)
}

func TestCounterValue(t *testing.T) {
	tests := []struct {
		name    string
		raw     bson.D
		want    uint64
		wantErr bool
	}{
		{"int64", bson.D{{Key: "nextId", Value: int64(3000)}}, 3000, false},
		{"int32", bson.D{{Key: "nextId", Value: int32(12)}}, 12, false},
		{"whole double", bson.D{{Key: "nextId", Value: float64(77)}}, 77, false},
		{"fractional double", bson.D{{Key: "nextId", Value: 1.5}}, 0, true},
		{"negative", bson.D{{Key: "nextId", Value: int64(-1)}}, 0, true},
		{"missing", bson.D{{Key: "_id", Value: "nextId"}}, 0, true},
		{"string", bson.D{{Key: "nextId", Value: "12"}}, 0, true},
		{"nan", bson.D{{Key: "nextId", Value: math.NaN()}}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := counterValue(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
