package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the runtime category of a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindChar
	KindString
	KindSequence
	KindObject
	KindError
	KindFuture
	KindIterator
)

var kindNames = [...]string{
	KindNone:     "none",
	KindBool:     "bool",
	KindInt:      "int",
	KindUint:     "uint",
	KindFloat:    "float",
	KindChar:     "char",
	KindString:   "string",
	KindSequence: "sequence",
	KindObject:   "object",
	KindError:    "error",
	KindFuture:   "future",
	KindIterator: "iterator",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a boxed runtime value. The zero Value is None.
type Value struct {
	ref  any
	str  string
	bits uint64
	kind Kind
}

// None returns the absent value.
func None() Value { return Value{} }

// Bool boxes a boolean.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.bits = 1
	}
	return v
}

// Int boxes a signed integer.
func Int(i int64) Value { return Value{kind: KindInt, bits: uint64(i)} }

// Uint boxes an unsigned integer.
func Uint(u uint64) Value { return Value{kind: KindUint, bits: u} }

// Float boxes a floating point number.
func Float(f float64) Value { return Value{kind: KindFloat, bits: math.Float64bits(f)} }

// Char boxes a character.
func Char(r rune) Value { return Value{kind: KindChar, bits: uint64(r)} }

// String boxes text.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Seq boxes an ordered sequence. The slice is not copied.
func Seq(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSequence, ref: items}
}

// Object boxes an opaque user value.
func Object(o any) Value { return Value{kind: KindObject, ref: o} }

// Error boxes a thrown error. A nil error yields None.
func Error(err error) Value {
	if err == nil {
		return None()
	}
	return Value{kind: KindError, ref: err}
}

// FutureOf boxes a future.
func FutureOf(f *Future) Value { return Value{kind: KindFuture, ref: f} }

// IteratorOf boxes an iterator.
func IteratorOf(it Iterator) Value { return Value{kind: KindIterator, ref: it} }

// Kind returns the value's category.
func (v Value) Kind() Kind { return v.kind }

// IsNone reports whether v is the absent value.
func (v Value) IsNone() bool { return v.kind == KindNone }

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.bits != 0, true
}

func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return int64(v.bits), true
	case KindUint:
		if v.bits > math.MaxInt64 {
			return 0, false
		}
		return int64(v.bits), true
	case KindChar:
		return int64(v.bits), true
	}
	return 0, false
}

func (v Value) AsUint() (uint64, bool) {
	if v.kind != KindUint {
		return 0, false
	}
	return v.bits, true
}

func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return math.Float64frombits(v.bits), true
	case KindInt:
		return float64(int64(v.bits)), true
	case KindUint:
		return float64(v.bits), true
	}
	return 0, false
}

func (v Value) AsChar() (rune, bool) {
	if v.kind != KindChar {
		return 0, false
	}
	return rune(v.bits), true
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsSeq returns the sequence items. Callers must not mutate the slice.
func (v Value) AsSeq() ([]Value, bool) {
	if v.kind != KindSequence {
		return nil, false
	}
	return v.ref.([]Value), true
}

func (v Value) AsObject() (any, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.ref, true
}

func (v Value) AsError() (error, bool) {
	if v.kind != KindError {
		return nil, false
	}
	return v.ref.(error), true
}

func (v Value) AsFuture() (*Future, bool) {
	if v.kind != KindFuture {
		return nil, false
	}
	return v.ref.(*Future), true
}

func (v Value) AsIterator() (Iterator, bool) {
	if v.kind != KindIterator {
		return nil, false
	}
	return v.ref.(Iterator), true
}

// Truthy reports whether v counts as true for conditional branches.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNone:
		return false
	case KindBool, KindInt, KindUint, KindChar:
		return v.bits != 0
	case KindFloat:
		return math.Float64frombits(v.bits) != 0
	case KindString:
		return v.str != ""
	case KindSequence:
		return len(v.ref.([]Value)) > 0
	}
	return v.ref != nil
}

// Equal reports structural equality. Objects, errors, futures and iterators
// compare by identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindBool, KindInt, KindUint, KindChar:
		return v.bits == o.bits
	case KindFloat:
		return math.Float64frombits(v.bits) == math.Float64frombits(o.bits)
	case KindString:
		return v.str == o.str
	case KindSequence:
		a, b := v.ref.([]Value), o.ref.([]Value)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	}
	return v.ref == o.ref
}

// Interface unboxes v into a plain Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.bits != 0
	case KindInt:
		return int64(v.bits)
	case KindUint:
		return v.bits
	case KindFloat:
		return math.Float64frombits(v.bits)
	case KindChar:
		return rune(v.bits)
	case KindString:
		return v.str
	case KindSequence:
		items := v.ref.([]Value)
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = it.Interface()
		}
		return out
	case KindNone:
		return nil
	}
	return v.ref
}

// String formats v for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "none"
	case KindBool:
		return strconv.FormatBool(v.bits != 0)
	case KindInt:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindUint:
		return strconv.FormatUint(v.bits, 10)
	case KindFloat:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case KindChar:
		return strconv.QuoteRune(rune(v.bits))
	case KindString:
		return strconv.Quote(v.str)
	case KindSequence:
		items := v.ref.([]Value)
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = it.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindError:
		return "error(" + v.ref.(error).Error() + ")"
	case KindFuture:
		return "future"
	case KindIterator:
		return "iterator"
	}
	return fmt.Sprintf("object(%v)", v.ref)
}

// From boxes a plain Go value. Unknown types become Objects.
func From(x any) Value {
	switch t := x.(type) {
	case nil:
		return None()
	case Value:
		return t
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return Uint(uint64(t))
	case uint8:
		return Uint(uint64(t))
	case uint16:
		return Uint(uint64(t))
	case uint32:
		return Uint(uint64(t))
	case uint64:
		return Uint(t)
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case string:
		return String(t)
	case error:
		return Error(t)
	case *Future:
		return FutureOf(t)
	case Iterator:
		return IteratorOf(t)
	case []Value:
		return Seq(t...)
	case []any:
		items := make([]Value, len(t))
		for i, it := range t {
			items[i] = From(it)
		}
		return Seq(items...)
	}
	return Object(x)
}
