// Package fields resolves logical fields from loosely-typed upstream JSON records.
//
// Upstream APIs rename keys between versions, so every logical field is declared
// once with the list of source keys it may arrive under. Lookups walk the aliases
// in order and stop at the first usable value.
package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Record is an untyped JSON object as decoded from an upstream response
type Record map[string]any

// Presence describes how a single key appears in a record
type Presence int

const (
	Absent  Presence = iota // key missing or null
	Empty                   // key present with "" or an empty list
	Present                 // key present with a usable value
)

func (p Presence) String() string {
	switch p {
	case Absent:
		return "absent"
	case Empty:
		return "empty"
	default:
		return "present"
	}
}

// Opt is an optional value. The zero value holds nothing.
type Opt[T any] struct {
	value T
	ok    bool
}

// Some wraps a value
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, ok: true}
}

// None returns an empty Opt
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// Get returns the value and whether it is set
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.ok
}

// OK reports whether the option holds a value
func (o Opt[T]) OK() bool {
	return o.ok
}

// Or returns the held value, or def when empty
func (o Opt[T]) Or(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

// Field is a logical field with the ordered list of keys it may appear under
type Field struct {
	Name    string
	Aliases []string
}

// NewField declares a logical field
func NewField(name string, aliases ...string) Field {
	return Field{Name: name, Aliases: aliases}
}

// Lookup returns the value of the first alias that is present and usable
func (f Field) Lookup(rec Record) Opt[any] {
	for _, key := range f.Aliases {
		v, ok := rec[key]
		if !ok {
			continue
		}
		if PresenceOf(v) == Present {
			return Some(v)
		}
	}
	return None[any]()
}

// Text resolves the field and coerces it to a string
func (f Field) Text(rec Record) Opt[string] {
	v, ok := f.Lookup(rec).Get()
	if !ok {
		return None[string]()
	}
	s := ToText(v)
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

// Record resolves the field as a nested object
func (f Field) Record(rec Record) Opt[Record] {
	for _, key := range f.Aliases {
		if m, ok := AsRecord(rec[key]); ok {
			return Some(m)
		}
	}
	return None[Record]()
}

// List resolves the field as a non-empty list
func (f Field) List(rec Record) Opt[[]any] {
	v, ok := f.Lookup(rec).Get()
	if !ok {
		return None[[]any]()
	}
	list, ok := v.([]any)
	if !ok {
		return None[[]any]()
	}
	return Some(list)
}

// Resolve returns the value of the first key whose value is not absent, an empty
// string or an empty list. If every key fails, def is returned.
func Resolve(rec Record, def any, keys ...string) any {
	return NewField("", keys...).Lookup(rec).Or(def)
}

// PresenceAt reports how key appears in rec
func PresenceAt(rec Record, key string) Presence {
	v, ok := rec[key]
	if !ok {
		return Absent
	}
	return PresenceOf(v)
}

// PresenceOf classifies a decoded JSON value
func PresenceOf(v any) Presence {
	switch t := v.(type) {
	case nil:
		return Absent
	case string:
		if t == "" {
			return Empty
		}
	case []any:
		if len(t) == 0 {
			return Empty
		}
	case []string:
		if len(t) == 0 {
			return Empty
		}
	}
	return Present
}

// AsRecord converts a decoded JSON object into a Record
func AsRecord(v any) (Record, bool) {
	switch t := v.(type) {
	case Record:
		return t, true
	case map[string]any:
		return Record(t), true
	}
	return nil, false
}

// ToText renders a scalar JSON value as text. Objects and lists yield "".
func ToText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, Record, []any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Decode parses a JSON object keeping numbers as json.Number so that large
// identifiers survive intact.
func Decode(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	return rec, nil
}

// Records returns the object elements of a list, skipping anything else
func Records(list []any) []Record {
	out := make([]Record, 0, len(list))
	for _, item := range list {
		if rec, ok := AsRecord(item); ok {
			out = append(out, rec)
		}
	}
	return out
}
