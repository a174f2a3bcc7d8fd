package codec

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Encode переводит Value в значение, которое драйвер MongoDB пишет как есть.
// Документы получают детерминированный порядок полей.
func Encode(v Value) any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindObjectID:
		return v.oid
	case KindList:
		arr := make(bson.A, 0, len(v.list))
		for _, item := range v.list {
			arr = append(arr, Encode(item))
		}
		return arr
	case KindMap:
		return EncodeDocument(v.m)
	default:
		return nil
	}
}

// EncodeDocument переводит Document в bson.D с полями по алфавиту.
func EncodeDocument(doc Document) bson.D {
	out := make(bson.D, 0, len(doc))
	for _, k := range sortedKeys(doc) {
		out = append(out, bson.E{Key: k, Value: Encode(doc[k])})
	}
	return out
}

// Decode - обратная операция к Encode. BSON-типы вне закрытого набора
// (даты, бинарные данные, decimal128 и т.п.) отклоняются.
func Decode(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case primitive.Null, primitive.Undefined:
		return Null(), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case int:
		return Int(int64(t)), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case primitive.ObjectID:
		return ObjectID(t), nil
	case bson.D:
		doc, err := DecodeDocument(t)
		if err != nil {
			return Value{}, err
		}
		return Map(doc), nil
	case bson.M:
		return decodeMap(t)
	case map[string]any:
		return decodeMap(t)
	case bson.A:
		return decodeList(t)
	case []any:
		return decodeList(t)
	case bson.Raw:
		var d bson.D
		if err := bson.Unmarshal(t, &d); err != nil {
			return Value{}, fmt.Errorf("codec: unmarshal raw document: %w", err)
		}
		return Decode(d)
	default:
		return Value{}, fmt.Errorf("%w: bson %T", ErrUnsupportedType, x)
	}
}

// DecodeDocument переводит bson.D в Document.
func DecodeDocument(d bson.D) (Document, error) {
	doc := make(Document, len(d))
	for _, e := range d {
		v, err := Decode(e.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", e.Key, err)
		}
		doc[e.Key] = v
	}
	return doc, nil
}

func decodeMap(m map[string]any) (Value, error) {
	doc := make(Document, len(m))
	for k, item := range m {
		v, err := Decode(item)
		if err != nil {
			return Value{}, fmt.Errorf("field %q: %w", k, err)
		}
		doc[k] = v
	}
	return Map(doc), nil
}

func decodeList(items []any) (Value, error) {
	out := make([]Value, 0, len(items))
	for i, item := range items {
		v, err := Decode(item)
		if err != nil {
			return Value{}, fmt.Errorf("index %d: %w", i, err)
		}
		out = append(out, v)
	}
	return List(out...), nil
}
