package codec

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document - документ хранилища: имя поля -> значение.
type Document map[string]Value

// Keys возвращает имена полей в отсортированном порядке.
func (d Document) Keys() []string {
	return sortedKeys(d)
}

// Equal сравнивает документы без учёта порядка полей.
func (d Document) Equal(other Document) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Clone возвращает глубокую копию документа.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v.Clone()
	}
	return out
}

// Has сообщает, что поле присутствует и не равно null.
func (d Document) Has(key string) bool {
	v, ok := d[key]
	return ok && !v.IsNull()
}

func mismatch(key string, want Kind, got Value) error {
	return fmt.Errorf("%w: field %q is %s, want %s", ErrKindMismatch, key, got.Kind(), want)
}

// String возвращает строковое поле; пустую строку, если поля нет или оно null.
func (d Document) String(key string) (string, error) {
	v, ok := d[key]
	if !ok || v.IsNull() {
		return "", nil
	}
	s, ok := v.AsString()
	if !ok {
		return "", mismatch(key, KindString, v)
	}
	return s, nil
}

// NullableString различает отсутствующее/null поле (nil) и пустую строку.
func (d Document) NullableString(key string) (*string, error) {
	v, ok := d[key]
	if !ok || v.IsNull() {
		return nil, nil
	}
	s, ok := v.AsString()
	if !ok {
		return nil, mismatch(key, KindString, v)
	}
	return &s, nil
}

func (d Document) Int(key string) (int64, error) {
	v, ok := d[key]
	if !ok || v.IsNull() {
		return 0, nil
	}
	i, ok := v.AsInt()
	if !ok {
		return 0, mismatch(key, KindInt, v)
	}
	return i, nil
}

// Float читает число; целое значение расширяется до float.
func (d Document) Float(key string) (float64, error) {
	v, ok := d[key]
	if !ok || v.IsNull() {
		return 0, nil
	}
	f, ok := v.AsFloat()
	if !ok {
		return 0, mismatch(key, KindFloat, v)
	}
	return f, nil
}

func (d Document) Bool(key string) (bool, error) {
	v, ok := d[key]
	if !ok || v.IsNull() {
		return false, nil
	}
	b, ok := v.AsBool()
	if !ok {
		return false, mismatch(key, KindBool, v)
	}
	return b, nil
}

func (d Document) ObjectID(key string) (primitive.ObjectID, error) {
	v, ok := d[key]
	if !ok || v.IsNull() {
		return primitive.NilObjectID, nil
	}
	id, ok := v.AsObjectID()
	if !ok {
		return primitive.NilObjectID, mismatch(key, KindObjectID, v)
	}
	return id, nil
}

// Doc возвращает вложенный документ; nil, если поля нет.
func (d Document) Doc(key string) (Document, error) {
	v, ok := d[key]
	if !ok || v.IsNull() {
		return nil, nil
	}
	m, ok := v.AsMap()
	if !ok {
		return nil, mismatch(key, KindMap, v)
	}
	return m, nil
}

func (d Document) List(key string) ([]Value, error) {
	v, ok := d[key]
	if !ok || v.IsNull() {
		return nil, nil
	}
	l, ok := v.AsList()
	if !ok {
		return nil, mismatch(key, KindList, v)
	}
	return l, nil
}

// reader копит первую ошибку, чтобы разбор документа не превращался в лестницу if err != nil.
type reader struct {
	doc Document
	err error
}

func (r *reader) string(key string) string {
	if r.err != nil {
		return ""
	}
	s, err := r.doc.String(key)
	r.err = err
	return s
}

func (r *reader) nullableString(key string) *string {
	if r.err != nil {
		return nil
	}
	s, err := r.doc.NullableString(key)
	r.err = err
	return s
}

func (r *reader) int(key string) int64 {
	if r.err != nil {
		return 0
	}
	i, err := r.doc.Int(key)
	r.err = err
	return i
}

func (r *reader) float(key string) float64 {
	if r.err != nil {
		return 0
	}
	f, err := r.doc.Float(key)
	r.err = err
	return f
}

func (r *reader) objectID(key string) primitive.ObjectID {
	if r.err != nil {
		return primitive.NilObjectID
	}
	id, err := r.doc.ObjectID(key)
	r.err = err
	return id
}

func (r *reader) nested(key string) Document {
	if r.err != nil {
		return nil
	}
	d, err := r.doc.Doc(key)
	r.err = err
	return d
}

func (r *reader) list(key string) []Value {
	if r.err != nil {
		return nil
	}
	l, err := r.doc.List(key)
	r.err = err
	return l
}
