package kat

import "strings"

// Flavor describes how the binder told the engine to realize a class.
type Flavor uint8

const (
	// FlavorCapture redirects a type to the generic capture shape. The
	// original identity is preserved verbatim and restored on encode.
	FlavorCapture Flavor = iota

	// FlavorNative marks a framework type the tool understands structurally
	// (collections, Guid, KeyValuePair and friends).
	FlavorNative

	// FlavorOpaque marks a type that resolved to neither; its fields are
	// still captured best-effort but identity round-trip is not guaranteed.
	FlavorOpaque
)

// String returns the flavor name.
func (f Flavor) String() string {
	switch f {
	case FlavorCapture:
		return "capture"
	case FlavorNative:
		return "native"
	case FlavorOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Field is one named slot of a class object.
type Field struct {
	Name  string
	Value *Value
}

// Object is one serialized class instance: the recorded type identity plus
// an insertion-ordered field table. For FlavorCapture objects TypeName and
// Library are the original stream identity and must be written back
// verbatim; an empty Library means the stream recorded none.
type Object struct {
	TypeName string
	Library  string
	Flavor   Flavor

	fields []Field
	index  map[string]int
}

// NewObject creates an empty class object. There is no way to build a
// capture object without supplying its identity up front.
func NewObject(flavor Flavor, typeName, library string) *Object {
	return &Object{
		TypeName: typeName,
		Library:  library,
		Flavor:   flavor,
		index:    make(map[string]int),
	}
}

// AddField appends a field, preserving stream order. Duplicate names
// overwrite in place so keys stay unique per object.
func (o *Object) AddField(name string, v *Value) {
	if i, ok := o.index[name]; ok {
		o.fields[i].Value = v
		return
	}
	o.index[name] = len(o.fields)
	o.fields = append(o.fields, Field{Name: name, Value: v})
}

// Field returns the named field value.
func (o *Object) Field(name string) (*Value, bool) {
	i, ok := o.index[name]
	if !ok {
		return nil, false
	}
	return o.fields[i].Value, true
}

// SetField replaces the value of an existing field. It reports false when
// the field does not exist: mutation never grows the field table.
func (o *Object) SetField(name string, v *Value) bool {
	i, ok := o.index[name]
	if !ok {
		return false
	}
	o.fields[i].Value = v
	return true
}

// Fields returns the ordered field table.
func (o *Object) Fields() []Field {
	return o.fields
}

// Len returns the field count.
func (o *Object) Len() int {
	return len(o.fields)
}

// ============================================================
// Native framework views
// ============================================================
//
// The original runtime rebuilt real collection instances for framework
// types, so paths index straight into a List`1 and JSON shows it as an
// array. These views give the decoded field shapes the same behavior.

const (
	typeListPrefix   = "System.Collections.Generic.List`1"
	typeDictPrefix   = "System.Collections.Generic.Dictionary`2"
	typeKVPairPrefix = "System.Collections.Generic.KeyValuePair`2"
	typeArrayList    = "System.Collections.ArrayList"
	typeGuid         = "System.Guid"
)

// isSequence reports whether the object is a list-like framework type.
func (o *Object) isSequence() bool {
	return strings.HasPrefix(o.TypeName, typeListPrefix) || o.TypeName == typeArrayList
}

// sequenceSlots returns the live element slots of a list-like object:
// the backing array trimmed to the recorded size. Writes through the
// returned slice land in the backing array.
func (o *Object) sequenceSlots() ([]*Value, bool) {
	if o.Flavor != FlavorNative || !o.isSequence() {
		return nil, false
	}
	itemsVal, ok := o.Field("_items")
	if !ok {
		return nil, false
	}
	items := itemsVal.Items()
	if items == nil {
		return nil, false
	}
	sizeVal, ok := o.Field("_size")
	if !ok {
		return nil, false
	}
	size, err := sizeVal.AsInt()
	if err != nil || size < 0 || size > int64(len(items)) {
		return nil, false
	}
	return items[:size], true
}

// mappingPairs returns the KeyValuePair objects of a Dictionary`2 in
// stream order. Each pair object owns the assignable "value" slot.
func (o *Object) mappingPairs() ([]*Object, bool) {
	if o.Flavor != FlavorNative || !strings.HasPrefix(o.TypeName, typeDictPrefix) {
		return nil, false
	}
	pairsVal, ok := o.Field("KeyValuePairs")
	if !ok {
		return nil, false
	}
	items := pairsVal.Items()
	if items == nil {
		return nil, false
	}
	pairs := make([]*Object, 0, len(items))
	for _, it := range items {
		po := it.Object()
		if po == nil {
			return nil, false
		}
		pairs = append(pairs, po)
	}
	return pairs, true
}

// pairSlots returns the key value and the value field name of a
// KeyValuePair object. Field names differ across runtime versions
// ("key"/"value" vs "_key"/"_value").
func (o *Object) pairSlots() (key *Value, valueField string, ok bool) {
	if k, found := o.Field("key"); found {
		if _, found := o.Field("value"); found {
			return k, "value", true
		}
	}
	if k, found := o.Field("_key"); found {
		if _, found := o.Field("_value"); found {
			return k, "_value", true
		}
	}
	return nil, "", false
}

// guidBytes assembles the canonical 16-byte form of a System.Guid from its
// serialized fields (_a int32, _b/_c int16, _d.._k uint8).
func (o *Object) guidBytes() ([16]byte, bool) {
	var out [16]byte
	if o.TypeName != typeGuid {
		return out, false
	}
	a, ok := o.fieldInt("_a")
	if !ok {
		return out, false
	}
	b, ok := o.fieldInt("_b")
	if !ok {
		return out, false
	}
	c, ok := o.fieldInt("_c")
	if !ok {
		return out, false
	}
	out[0] = byte(a >> 24)
	out[1] = byte(a >> 16)
	out[2] = byte(a >> 8)
	out[3] = byte(a)
	out[4] = byte(b >> 8)
	out[5] = byte(b)
	out[6] = byte(c >> 8)
	out[7] = byte(c)
	tail := []string{"_d", "_e", "_f", "_g", "_h", "_i", "_j", "_k"}
	for i, name := range tail {
		n, ok := o.fieldInt(name)
		if !ok {
			return out, false
		}
		out[8+i] = byte(n)
	}
	return out, true
}

// fieldInt reads a field as an integer of either signedness.
func (o *Object) fieldInt(name string) (int64, bool) {
	v, ok := o.Field(name)
	if !ok {
		return 0, false
	}
	if n, err := v.AsInt(); err == nil {
		return n, true
	}
	if n, err := v.AsUint(); err == nil {
		return int64(n), true
	}
	return 0, false
}
