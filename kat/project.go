package kat

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
)

// ============================================================
// JSON Projection
// ============================================================
//
// Converts a decoded graph into a JSON-compatible tree for display.
// Traversal keeps a global seen-set over reference nodes: the second
// visit to any object, list or byte buffer projects as null, which both
// breaks cycles and mirrors the original tool's behavior for shared
// references.
//
// Reserved keys carry provenance:
//
//	$original_type    capture node: recorded type name
//	$original_origin  capture node: recorded assembly name
//	$type             fallback node: runtime type name

// Reserved projection keys.
const (
	KeyOriginalType   = "$original_type"
	KeyOriginalOrigin = "$original_origin"
	KeyFallbackType   = "$type"
)

// Project converts a decoded graph into a JSON-compatible tree.
// The result is built from nil, bool, numbers, string, []any and
// *ProjectedObject (which marshals with insertion order preserved).
func Project(root *Value) any {
	p := &projector{seen: make(map[*Value]bool)}
	return p.value(root)
}

type projector struct {
	seen map[*Value]bool
}

func (p *projector) value(v *Value) any {
	switch v.Kind() {
	case KindNull:
		return nil
	case KindBool:
		b, _ := v.AsBool()
		return b
	case KindChar:
		r, _ := v.AsChar()
		return string(r)
	case KindInt8, KindInt16, KindInt32, KindInt64:
		n, _ := v.AsInt()
		return n
	case KindUint8, KindUint16, KindUint32, KindUint64:
		n, _ := v.AsUint()
		return n
	case KindFloat32, KindFloat64:
		f, _ := v.AsFloat()
		return f
	case KindDecimal:
		d, _ := v.AsDecimal()
		f, _ := d.Float64()
		return f
	case KindTime:
		return v.TimeString()
	case KindDuration:
		o := NewProjectedObject()
		o.Set(KeyFallbackType, "System.TimeSpan")
		o.Set("_ticks", v.DurationTicks())
		return o
	case KindString:
		s, _ := v.AsString()
		return s
	case KindBytes:
		if p.seen[v] {
			return nil
		}
		p.seen[v] = true
		buf, _ := v.AsBytes()
		out := make([]any, len(buf))
		for i, b := range buf {
			out[i] = int(b)
		}
		return out
	case KindList:
		if p.seen[v] {
			return nil
		}
		p.seen[v] = true
		items := v.Items()
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = p.value(it)
		}
		return out
	case KindObject:
		if p.seen[v] {
			return nil
		}
		p.seen[v] = true
		return p.object(v.Object())
	default:
		return nil
	}
}

func (p *projector) object(o *Object) any {
	switch o.Flavor {
	case FlavorCapture:
		out := NewProjectedObject()
		out.Set(KeyOriginalType, o.TypeName)
		out.Set(KeyOriginalOrigin, o.Library)
		for _, f := range o.Fields() {
			// The identity keys win on a (pathological) name collision.
			if f.Name == KeyOriginalType || f.Name == KeyOriginalOrigin {
				continue
			}
			out.Set(f.Name, p.value(f.Value))
		}
		return out
	case FlavorNative:
		if slots, ok := o.sequenceSlots(); ok {
			out := make([]any, len(slots))
			for i, it := range slots {
				out[i] = p.value(it)
			}
			return out
		}
		if pairs, ok := o.mappingPairs(); ok {
			out := NewProjectedObject()
			for _, po := range pairs {
				key, valueField, ok := po.pairSlots()
				if !ok {
					continue
				}
				ks, ok := scalarKeyString(key)
				if !ok {
					continue
				}
				val, _ := po.Field(valueField)
				out.Set(ks, p.value(val))
			}
			return out
		}
		if g, ok := o.guidBytes(); ok {
			return uuid.UUID(g).String()
		}
		return p.fallback(o)
	default:
		return p.fallback(o)
	}
}

// fallback projects any remaining class as $type plus its captured
// fields, the structural best-effort the original reached via reflection.
func (p *projector) fallback(o *Object) any {
	out := NewProjectedObject()
	out.Set(KeyFallbackType, o.TypeName)
	for _, f := range o.Fields() {
		if f.Name == KeyFallbackType {
			continue
		}
		out.Set(f.Name, p.value(f.Value))
	}
	return out
}

// scalarKeyString renders a scalar value as a mapping key.
func scalarKeyString(v *Value) (string, bool) {
	switch v.Kind() {
	case KindString:
		s, _ := v.AsString()
		return s, true
	case KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b), true
	case KindChar:
		r, _ := v.AsChar()
		return string(r), true
	case KindInt8, KindInt16, KindInt32, KindInt64:
		n, _ := v.AsInt()
		return strconv.FormatInt(n, 10), true
	case KindUint8, KindUint16, KindUint32, KindUint64:
		n, _ := v.AsUint()
		return strconv.FormatUint(n, 10), true
	case KindFloat32, KindFloat64:
		f, _ := v.AsFloat()
		return strconv.FormatFloat(f, 'g', -1, 64), true
	case KindDecimal:
		d, _ := v.AsDecimal()
		return d.String(), true
	default:
		return "", false
	}
}

// ============================================================
// Ordered JSON objects
// ============================================================

// ProjectedObject is a JSON object that marshals its entries in insertion
// order. encoding/json maps sort keys alphabetically, which would reorder
// field tables; display must show fields in stream order.
type ProjectedObject struct {
	keys   []string
	values map[string]any
}

// NewProjectedObject creates an empty ordered object.
func NewProjectedObject() *ProjectedObject {
	return &ProjectedObject{values: make(map[string]any)}
}

// Set adds or replaces an entry. First insertion fixes the position.
func (o *ProjectedObject) Set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns an entry value.
func (o *ProjectedObject) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the entry keys in insertion order.
func (o *ProjectedObject) Keys() []string {
	return o.keys
}

// Len returns the entry count.
func (o *ProjectedObject) Len() int {
	return len(o.keys)
}

// MarshalJSON implements json.Marshaler preserving insertion order and
// leaving non-ASCII text unescaped.
func (o *ProjectedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalPlain(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalPlain(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalPlain marshals without HTML escaping.
func marshalPlain(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
