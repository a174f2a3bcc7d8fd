package mongo

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vladislavdragonenkov/cleanerspos/internal/codec"
	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

// containsRegex - подстрока без учёта регистра; ввод пользователя экранируется.
func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// prefixRegex - префикс без учёта регистра.
func prefixRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s), Options: "i"}
}

// customerFilter строит фильтр поиска клиентов по имени, фамилии и телефону.
// owners != nil ограничивает выборку клиентами, найденными по номеру квитанции.
func customerFilter(criteria domain.CustomerSearch, owners []primitive.ObjectID) bson.D {
	filter := bson.D{}
	if criteria.FirstName != "" {
		filter = append(filter, bson.E{Key: codec.FieldFirstName, Value: containsRegex(criteria.FirstName)})
	}
	if criteria.LastName != "" {
		filter = append(filter, bson.E{Key: codec.FieldLastName, Value: containsRegex(criteria.LastName)})
	}
	if criteria.Phone != "" {
		filter = append(filter, bson.E{Key: codec.FieldPhoneNumber, Value: prefixRegex(criteria.Phone)})
	}
	if owners != nil {
		filter = append(filter, bson.E{Key: codec.FieldID, Value: bson.D{{Key: "$in", Value: owners}}})
	}
	return filter
}

// ticketFilter выбирает заказы, чей ticketNumber содержит подстроку.
func ticketFilter(ticket string) bson.D {
	return bson.D{{Key: codec.FieldTicketNumber, Value: containsRegex(ticket)}}
}

// orderUpdate строит обновление заказа. Без дописывания заметки это обычный $set,
// с ним - pipeline, который склеивает orderNote на сервере одной операцией.
// orderUpdateFilter добавляет к _id условие на текущий остаток, если оно задано.
func orderUpdateFilter(id primitive.ObjectID, patch domain.OrderPatch) bson.D {
	filter := bson.D{{Key: codec.FieldID, Value: id}}
	if patch.ExpectBalance != nil {
		filter = append(filter, bson.E{Key: codec.FieldBalance, Value: patch.ExpectBalance.InexactFloat64()})
	}
	return filter
}

func orderUpdate(patch domain.OrderPatch) any {
	set := codec.EncodeDocument(codec.OrderPatchDocument(patch))
	if patch.AppendNote == "" {
		return bson.D{{Key: "$set", Value: set}}
	}

	// В pipeline строки с "$" трактуются как пути, поэтому значения оборачиваются в $literal.
	literal := make(bson.D, 0, len(set)+1)
	for _, e := range set {
		literal = append(literal, bson.E{Key: e.Key, Value: bson.D{{Key: "$literal", Value: e.Value}}})
	}
	literal = append(literal, bson.E{Key: codec.FieldOrderNote, Value: appendNoteExpr(patch.AppendNote)})

	return mongo.Pipeline{{{Key: "$set", Value: literal}}}
}

func appendNoteExpr(addition string) bson.D {
	current := bson.D{{Key: "$ifNull", Value: bson.A{"$" + codec.FieldOrderNote, ""}}}
	return bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{current, ""}}},
		bson.D{{Key: "$literal", Value: addition}},
		bson.D{{Key: "$concat", Value: bson.A{
			current,
			bson.D{{Key: "$literal", Value: domain.NoteSeparator + addition}},
		}}},
	}}}
}
