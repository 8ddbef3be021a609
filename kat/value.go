package kat

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the concrete payload of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindChar
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindDecimal
	KindTime     // .NET DateTime, raw stream bits preserved
	KindDuration // .NET TimeSpan, 100ns ticks
	KindString
	KindBytes // byte[] fast path
	KindList
	KindObject
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindInt8:
		return "int8"
	case KindUint8:
		return "uint8"
	case KindInt16:
		return "int16"
	case KindUint16:
		return "uint16"
	case KindInt32:
		return "int32"
	case KindUint32:
		return "uint32"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindDecimal:
		return "decimal"
	case KindTime:
		return "datetime"
	case KindDuration:
		return "timespan"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// IsScalar reports whether the kind is a leaf primitive. Strings are
// reference values on the wire, not primitives, and are excluded.
func (k Kind) IsScalar() bool {
	return k > KindNull && k < KindString
}

// ArrayFlavor records how a list was written in the stream, so the engine
// can reproduce the same array record shape on encode.
type ArrayFlavor uint8

const (
	ArrayObject    ArrayFlavor = iota // elements are arbitrary records
	ArrayString                       // elements are strings or nulls
	ArrayPrimitive                    // elements are one inline primitive type
)

// Value is one node of a decoded object graph.
type Value struct {
	kind Kind

	// Scalar payloads (one valid based on kind).
	boolVal  bool
	intVal   int64  // int8..int64 and char
	uintVal  uint64 // uint8..uint64
	floatVal float64
	decVal   decimal.Decimal
	timeRaw  uint64 // DateTime: 62-bit tick count + 2-bit kind
	durTicks int64  // TimeSpan ticks
	strVal   string
	bytesVal []byte

	// Containers.
	items  []*Value
	flavor ArrayFlavor
	elem   Kind // element kind for ArrayPrimitive lists
	obj    *Object

	// Stream object id recorded at decode and reused at encode.
	// Zero means the engine has not assigned one.
	id int32
}

// ============================================================
// Constructors
// ============================================================

// Null creates a null value.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Bool creates a boolean value.
func Bool(v bool) *Value {
	return &Value{kind: KindBool, boolVal: v}
}

// Char creates a character value.
func Char(r rune) *Value {
	return &Value{kind: KindChar, intVal: int64(r)}
}

// Int8 creates a signed 8-bit value.
func Int8(v int8) *Value {
	return &Value{kind: KindInt8, intVal: int64(v)}
}

// Uint8 creates an unsigned 8-bit value.
func Uint8(v uint8) *Value {
	return &Value{kind: KindUint8, uintVal: uint64(v)}
}

// Int16 creates a signed 16-bit value.
func Int16(v int16) *Value {
	return &Value{kind: KindInt16, intVal: int64(v)}
}

// Uint16 creates an unsigned 16-bit value.
func Uint16(v uint16) *Value {
	return &Value{kind: KindUint16, uintVal: uint64(v)}
}

// Int32 creates a signed 32-bit value.
func Int32(v int32) *Value {
	return &Value{kind: KindInt32, intVal: int64(v)}
}

// Uint32 creates an unsigned 32-bit value.
func Uint32(v uint32) *Value {
	return &Value{kind: KindUint32, uintVal: uint64(v)}
}

// Int64 creates a signed 64-bit value.
func Int64(v int64) *Value {
	return &Value{kind: KindInt64, intVal: v}
}

// Uint64 creates an unsigned 64-bit value.
func Uint64(v uint64) *Value {
	return &Value{kind: KindUint64, uintVal: v}
}

// Float32 creates a single-precision float value.
func Float32(v float32) *Value {
	return &Value{kind: KindFloat32, floatVal: float64(v)}
}

// Float64 creates a double-precision float value.
func Float64(v float64) *Value {
	return &Value{kind: KindFloat64, floatVal: v}
}

// Dec creates an arbitrary-precision decimal value.
func Dec(v decimal.Decimal) *Value {
	return &Value{kind: KindDecimal, decVal: v}
}

// DateTime creates a DateTime value from the raw stream bits
// (62-bit tick count since 0001-01-01 plus 2-bit kind).
func DateTime(raw uint64) *Value {
	return &Value{kind: KindTime, timeRaw: raw}
}

// Duration creates a TimeSpan value from 100ns ticks.
func Duration(ticks int64) *Value {
	return &Value{kind: KindDuration, durTicks: ticks}
}

// Str creates a string value.
func Str(v string) *Value {
	return &Value{kind: KindString, strVal: v}
}

// Bytes creates a byte-buffer value.
func Bytes(v []byte) *Value {
	return &Value{kind: KindBytes, bytesVal: v}
}

// List creates a list value. elem is the element kind for ArrayPrimitive
// flavored lists and KindNull otherwise.
func List(flavor ArrayFlavor, elem Kind, items ...*Value) *Value {
	return &Value{kind: KindList, flavor: flavor, elem: elem, items: items}
}

// Obj wraps a class object as a value.
func Obj(o *Object) *Value {
	return &Value{kind: KindObject, obj: o}
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value kind. A nil value reads as null.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether this is a null value.
func (v *Value) IsNull() bool {
	return v == nil || v.kind == KindNull
}

// AsBool returns the boolean payload.
func (v *Value) AsBool() (bool, error) {
	if v.Kind() != KindBool {
		return false, fmt.Errorf("kat: expected bool, got %s", v.Kind())
	}
	return v.boolVal, nil
}

// AsChar returns the character payload.
func (v *Value) AsChar() (rune, error) {
	if v.Kind() != KindChar {
		return 0, fmt.Errorf("kat: expected char, got %s", v.Kind())
	}
	return rune(v.intVal), nil
}

// AsInt returns the payload of any signed integer kind widened to int64.
func (v *Value) AsInt() (int64, error) {
	switch v.Kind() {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return v.intVal, nil
	}
	return 0, fmt.Errorf("kat: expected signed integer, got %s", v.Kind())
}

// AsUint returns the payload of any unsigned integer kind widened to uint64.
func (v *Value) AsUint() (uint64, error) {
	switch v.Kind() {
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return v.uintVal, nil
	}
	return 0, fmt.Errorf("kat: expected unsigned integer, got %s", v.Kind())
}

// AsFloat returns the payload of either float kind as float64.
// Float32 payloads round-trip exactly through the widened form.
func (v *Value) AsFloat() (float64, error) {
	switch v.Kind() {
	case KindFloat32, KindFloat64:
		return v.floatVal, nil
	}
	return 0, fmt.Errorf("kat: expected float, got %s", v.Kind())
}

// AsDecimal returns the decimal payload.
func (v *Value) AsDecimal() (decimal.Decimal, error) {
	if v.Kind() != KindDecimal {
		return decimal.Decimal{}, fmt.Errorf("kat: expected decimal, got %s", v.Kind())
	}
	return v.decVal, nil
}

// AsString returns the string payload.
func (v *Value) AsString() (string, error) {
	if v.Kind() != KindString {
		return "", fmt.Errorf("kat: expected string, got %s", v.Kind())
	}
	return v.strVal, nil
}

// AsBytes returns the byte-buffer payload.
func (v *Value) AsBytes() ([]byte, error) {
	if v.Kind() != KindBytes {
		return nil, fmt.Errorf("kat: expected bytes, got %s", v.Kind())
	}
	return v.bytesVal, nil
}

// DateTimeRaw returns the raw DateTime stream bits (zero if not a DateTime).
func (v *Value) DateTimeRaw() uint64 {
	if v.Kind() != KindTime {
		return 0
	}
	return v.timeRaw
}

// DurationTicks returns the TimeSpan tick count (zero if not a TimeSpan).
func (v *Value) DurationTicks() int64 {
	if v.Kind() != KindDuration {
		return 0
	}
	return v.durTicks
}

// Items returns the backing element slice of a list, or nil.
func (v *Value) Items() []*Value {
	if v.Kind() != KindList {
		return nil
	}
	return v.items
}

// Flavor returns the array flavor of a list value.
func (v *Value) Flavor() ArrayFlavor {
	if v == nil {
		return ArrayObject
	}
	return v.flavor
}

// ElemKind returns the element kind of an ArrayPrimitive list.
func (v *Value) ElemKind() Kind {
	if v == nil {
		return KindNull
	}
	return v.elem
}

// Object returns the class object payload, or nil.
func (v *Value) Object() *Object {
	if v.Kind() != KindObject {
		return nil
	}
	return v.obj
}

// ObjectID returns the stream object id assigned by the engine.
func (v *Value) ObjectID() int32 {
	if v == nil {
		return 0
	}
	return v.id
}

// SetObjectID records the stream object id. Used by the wire engine only.
func (v *Value) SetObjectID(id int32) {
	v.id = id
}

// ============================================================
// DateTime helpers
// ============================================================

// DateTime kind bits (top two bits of the raw value).
const (
	dateTimeKindMask  = uint64(3) << 62
	dateTimeKindUTC   = uint64(1) << 62
	dateTimeTicksMask = (uint64(1) << 62) - 1
)

// Seconds between 0001-01-01T00:00:00 and the Unix epoch.
const ticksEpochOffsetSeconds = 62135596800

// TimeString renders a DateTime payload as a round-trippable timestamp in
// the original runtime's "o" shape: seven fractional digits, a trailing Z
// for UTC ticks and no suffix for unspecified ones.
func (v *Value) TimeString() string {
	ticks := v.timeRaw & dateTimeTicksMask
	secs := int64(ticks / 10_000_000)
	frac := ticks % 10_000_000
	t := time.Unix(secs-ticksEpochOffsetSeconds, 0).UTC()
	s := fmt.Sprintf("%s.%07d", t.Format("2006-01-02T15:04:05"), frac)
	if v.timeRaw&dateTimeKindMask != 0 {
		// UTC and local both serialize their tick count; render as UTC.
		s += "Z"
	}
	return s
}
