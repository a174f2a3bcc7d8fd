// Package codec переводит доменные агрегаты в бессхемные документы хранилища и обратно.
package codec

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrUnsupportedType - значение не входит в закрытый набор типов документа.
	ErrUnsupportedType = errors.New("codec: unsupported value type")
	// ErrKindMismatch - поле документа есть, но хранит значение другого вида.
	ErrKindMismatch = errors.New("codec: value kind mismatch")
	// ErrIntOverflow - беззнаковое число не помещается в int64.
	ErrIntOverflow = errors.New("codec: integer overflows int64")
)

// Kind - тег варианта Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
	KindObjectID
)

var kindNames = [...]string{
	KindNull:     "null",
	KindString:   "string",
	KindInt:      "int",
	KindFloat:    "float",
	KindBool:     "bool",
	KindList:     "list",
	KindMap:      "map",
	KindObjectID: "objectId",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value - одно значение документа. Нулевое Value - это null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	list []Value
	m    Document
	oid  primitive.ObjectID
}

func Null() Value { return Value{} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Int(i int64) Value { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func ObjectID(id primitive.ObjectID) Value { return Value{kind: KindObjectID, oid: id} }

// List создаёт список; nil становится пустым списком.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Map создаёт вложенный документ; nil становится пустым документом.
func Map(doc Document) Value {
	if doc == nil {
		doc = Document{}
	}
	return Value{kind: KindMap, m: doc}
}

// NullableString возвращает Null для nil и String для остального.
func NullableString(s *string) Value {
	if s == nil {
		return Null()
	}
	return String(*s)
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString и прочие As* возвращают значение и признак совпадения вида.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }
func (v Value) AsMap() (Document, bool) { return v.m, v.kind == KindMap }
func (v Value) AsObjectID() (primitive.ObjectID, bool) { return v.oid, v.kind == KindObjectID }

// AsFloat расширяет int до float.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Equal сравнивает значения рекурсивно. NaN равен NaN, int и float не смешиваются.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == other.s
	case KindInt:
		return v.i == other.i
	case KindFloat:
		if math.IsNaN(v.f) && math.IsNaN(other.f) {
			return true
		}
		return v.f == other.f
	case KindBool:
		return v.b == other.b
	case KindObjectID:
		return v.oid == other.oid
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(other.m)
	default:
		return false
	}
}

// Clone возвращает глубокую копию.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		out := make([]Value, len(v.list))
		for i, item := range v.list {
			out[i] = item.Clone()
		}
		return Value{kind: KindList, list: out}
	case KindMap:
		return Value{kind: KindMap, m: v.m.Clone()}
	default:
		return v
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindObjectID:
		return "ObjectId(" + v.oid.Hex() + ")"
	case KindList:
		return fmt.Sprintf("%v", v.list)
	case KindMap:
		keys := v.m.Keys()
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+":"+v.m[k].String())
		}
		return fmt.Sprintf("%v", parts)
	default:
		return "invalid"
	}
}

// FromGo переводит обычное Go-значение в Value. Типы вне закрытого набора отклоняются.
func FromGo(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case *string:
		return NullableString(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return fromUint(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case primitive.ObjectID:
		return ObjectID(t), nil
	case Document:
		return Map(t), nil
	case map[string]any:
		doc := make(Document, len(t))
		for k, item := range t {
			v, err := FromGo(item)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			doc[k] = v
		}
		return Map(doc), nil
	case []Value:
		return List(t...), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, item := range t {
			v, err := FromGo(item)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, v)
		}
		return List(items...), nil
	case []string:
		items := make([]Value, 0, len(t))
		for _, s := range t {
			items = append(items, String(s))
		}
		return List(items...), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("%w: %d", ErrIntOverflow, u)
	}
	return Int(int64(u)), nil
}

// sortedKeys возвращает ключи документа в лексикографическом порядке.
func sortedKeys(doc Document) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
