package nrbf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/duskwood-tools/katedit/kat"
)

// Encoder writes one object graph as a record stream.
type Encoder struct {
	w *bufio.Writer

	ids       map[*kat.Value]int32
	written   map[*kat.Value]bool
	libraries map[string]int32
	nextID    int32
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:         bufio.NewWriter(w),
		ids:       make(map[*kat.Value]int32),
		written:   make(map[*kat.Value]bool),
		libraries: make(map[string]int32),
		nextID:    1,
	}
}

// Encode writes the graph rooted at root to w.
func Encode(w io.Writer, root *kat.Value) error {
	return NewEncoder(w).Encode(root)
}

// Encode writes the whole graph. It may be called once.
func (e *Encoder) Encode(root *kat.Value) error {
	switch root.Kind() {
	case kat.KindObject, kat.KindList, kat.KindBytes:
	default:
		return &EncodeError{Reason: fmt.Sprintf("root must be an object or array, got %s", root.Kind())}
	}

	e.assignIDs(root)

	if err := e.writeHeader(e.ids[root]); err != nil {
		return err
	}
	if err := e.writeValue(root); err != nil {
		return err
	}
	if err := e.writeByte(byte(recMessageEnd)); err != nil {
		return err
	}
	if err := e.w.Flush(); err != nil {
		return &EncodeError{Reason: "flush", Cause: err}
	}
	return nil
}

// assignIDs gives every reference node an object id, reusing the ids the
// decoder recorded so re-encoded streams are deterministic. Fresh ids
// (for values created by edits) start above the highest recorded id.
func (e *Encoder) assignIDs(root *kat.Value) {
	var order []*kat.Value
	seen := make(map[*kat.Value]bool)

	var walk func(v *kat.Value)
	walk = func(v *kat.Value) {
		if v == nil || seen[v] {
			return
		}
		switch v.Kind() {
		case kat.KindObject:
			seen[v] = true
			order = append(order, v)
			for _, f := range v.Object().Fields() {
				walk(f.Value)
			}
		case kat.KindList:
			seen[v] = true
			order = append(order, v)
			for _, it := range v.Items() {
				walk(it)
			}
		case kat.KindBytes, kat.KindString:
			seen[v] = true
			order = append(order, v)
		}
	}
	walk(root)

	used := make(map[int32]bool)
	for _, v := range order {
		if id := v.ObjectID(); id > 0 && !used[id] {
			e.ids[v] = id
			used[id] = true
			if id >= e.nextID {
				e.nextID = id + 1
			}
		}
	}
	for _, v := range order {
		if _, ok := e.ids[v]; ok {
			continue
		}
		e.ids[v] = e.nextID
		used[e.nextID] = true
		e.nextID++
	}
}

func (e *Encoder) writeHeader(rootID int32) error {
	if err := e.writeByte(byte(recSerializedStreamHeader)); err != nil {
		return err
	}
	if err := e.writeInt32(rootID); err != nil {
		return err
	}
	if err := e.writeInt32(-1); err != nil { // headerId: no headers
		return err
	}
	if err := e.writeInt32(1); err != nil {
		return err
	}
	return e.writeInt32(0)
}

// ============================================================
// Values and records
// ============================================================

// writeValue writes one value in member/element position: a null record,
// an inline typed primitive, a string record or reference, or a full
// object record (reference on revisit).
func (e *Encoder) writeValue(v *kat.Value) error {
	switch v.Kind() {
	case kat.KindNull:
		return e.writeByte(byte(recObjectNull))
	case kat.KindString:
		return e.writeStringOrRef(v)
	case kat.KindObject, kat.KindList, kat.KindBytes:
		if e.written[v] {
			return e.writeReference(e.ids[v])
		}
		return e.writeObjectRecord(v)
	default:
		pt, ok := kindPrimitive(v.Kind())
		if !ok {
			return &EncodeError{Reason: fmt.Sprintf("cannot serialize %s value", v.Kind())}
		}
		if err := e.writeByte(byte(recMemberPrimitiveTyped)); err != nil {
			return err
		}
		if err := e.writeByte(byte(pt)); err != nil {
			return err
		}
		return e.writePrimitivePayload(v)
	}
}

func (e *Encoder) writeObjectRecord(v *kat.Value) error {
	e.written[v] = true
	switch v.Kind() {
	case kat.KindObject:
		return e.writeClass(v)
	case kat.KindList:
		return e.writeArray(v)
	case kat.KindBytes:
		buf, _ := v.AsBytes()
		if err := e.writeByte(byte(recArraySinglePrimitive)); err != nil {
			return err
		}
		if err := e.writeInt32(e.ids[v]); err != nil {
			return err
		}
		if err := e.writeInt32(int32(len(buf))); err != nil {
			return err
		}
		if err := e.writeByte(byte(ptByte)); err != nil {
			return err
		}
		return e.writeBuf(buf)
	default:
		return &EncodeError{Reason: fmt.Sprintf("cannot serialize %s record", v.Kind())}
	}
}

func (e *Encoder) writeClass(v *kat.Value) error {
	o := v.Object()

	// Member type info is recomputed from the live values: primitives
	// inline, strings as string records, everything else as objects.
	// This matches how the formatter writes ISerializable carriers, so
	// capture nodes re-encode the way the original tool's did.
	rec := recSystemClassWithMembersAndType
	var libID int32
	if o.Library != "" {
		rec = recClassWithMembersAndTypes
		id, err := e.ensureLibrary(o.Library)
		if err != nil {
			return err
		}
		libID = id
	}

	if err := e.writeByte(byte(rec)); err != nil {
		return err
	}
	if err := e.writeInt32(e.ids[v]); err != nil {
		return err
	}
	if err := e.writeLPS(o.TypeName); err != nil {
		return err
	}
	fields := o.Fields()
	if err := e.writeInt32(int32(len(fields))); err != nil {
		return err
	}
	for _, f := range fields {
		if err := e.writeLPS(f.Name); err != nil {
			return err
		}
	}
	for _, f := range fields {
		if err := e.writeByte(byte(memberBinaryType(f.Value))); err != nil {
			return err
		}
	}
	for _, f := range fields {
		if memberBinaryType(f.Value) != btPrimitive {
			continue
		}
		pt, _ := kindPrimitive(f.Value.Kind())
		if err := e.writeByte(byte(pt)); err != nil {
			return err
		}
	}
	if rec == recClassWithMembersAndTypes {
		if err := e.writeInt32(libID); err != nil {
			return err
		}
	}
	for _, f := range fields {
		if memberBinaryType(f.Value) == btPrimitive {
			if err := e.writePrimitivePayload(f.Value); err != nil {
				return err
			}
			continue
		}
		if err := e.writeValue(f.Value); err != nil {
			return err
		}
	}
	return nil
}

// memberBinaryType classifies a member value for class metadata.
func memberBinaryType(v *kat.Value) binaryType {
	k := v.Kind()
	switch {
	case k.IsScalar():
		return btPrimitive
	case k == kat.KindString:
		return btString
	default:
		return btObject
	}
}

func (e *Encoder) writeArray(v *kat.Value) error {
	items := v.Items()
	switch v.Flavor() {
	case kat.ArrayPrimitive:
		pt, ok := kindPrimitive(v.ElemKind())
		if !ok {
			return &EncodeError{Reason: fmt.Sprintf("invalid array element kind %s", v.ElemKind())}
		}
		if err := e.writeByte(byte(recArraySinglePrimitive)); err != nil {
			return err
		}
		if err := e.writeInt32(e.ids[v]); err != nil {
			return err
		}
		if err := e.writeInt32(int32(len(items))); err != nil {
			return err
		}
		if err := e.writeByte(byte(pt)); err != nil {
			return err
		}
		for _, it := range items {
			if err := e.writeConverted(v.ElemKind(), it); err != nil {
				return err
			}
		}
		return nil
	case kat.ArrayString:
		if err := e.writeByte(byte(recArraySingleString)); err != nil {
			return err
		}
		if err := e.writeInt32(e.ids[v]); err != nil {
			return err
		}
		if err := e.writeInt32(int32(len(items))); err != nil {
			return err
		}
		for _, it := range items {
			switch it.Kind() {
			case kat.KindNull:
				if err := e.writeByte(byte(recObjectNull)); err != nil {
					return err
				}
			case kat.KindString:
				if err := e.writeStringOrRef(it); err != nil {
					return err
				}
			default:
				return &EncodeError{Reason: fmt.Sprintf("string array holds %s value", it.Kind())}
			}
		}
		return nil
	default:
		if err := e.writeByte(byte(recArraySingleObject)); err != nil {
			return err
		}
		if err := e.writeInt32(e.ids[v]); err != nil {
			return err
		}
		if err := e.writeInt32(int32(len(items))); err != nil {
			return err
		}
		for _, it := range items {
			if err := e.writeValue(it); err != nil {
				return err
			}
		}
		return nil
	}
}

func (e *Encoder) writeStringOrRef(v *kat.Value) error {
	if e.written[v] {
		return e.writeReference(e.ids[v])
	}
	e.written[v] = true
	s, _ := v.AsString()
	if err := e.writeByte(byte(recBinaryObjectString)); err != nil {
		return err
	}
	if err := e.writeInt32(e.ids[v]); err != nil {
		return err
	}
	return e.writeLPS(s)
}

func (e *Encoder) writeReference(id int32) error {
	if err := e.writeByte(byte(recMemberReference)); err != nil {
		return err
	}
	return e.writeInt32(id)
}

func (e *Encoder) ensureLibrary(name string) (int32, error) {
	if id, ok := e.libraries[name]; ok {
		return id, nil
	}
	id := e.nextID
	e.nextID++
	e.libraries[name] = id
	if err := e.writeByte(byte(recBinaryLibrary)); err != nil {
		return 0, err
	}
	if err := e.writeInt32(id); err != nil {
		return 0, err
	}
	if err := e.writeLPS(name); err != nil {
		return 0, err
	}
	return id, nil
}

// ============================================================
// Primitive payloads
// ============================================================

func (e *Encoder) writePrimitivePayload(v *kat.Value) error {
	switch v.Kind() {
	case kat.KindBool:
		b, _ := v.AsBool()
		if b {
			return e.writeByte(1)
		}
		return e.writeByte(0)
	case kat.KindUint8:
		n, _ := v.AsUint()
		return e.writeByte(byte(n))
	case kat.KindInt8:
		n, _ := v.AsInt()
		return e.writeByte(byte(n))
	case kat.KindChar:
		r, _ := v.AsChar()
		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], r)
		return e.writeBuf(buf[:n])
	case kat.KindDecimal:
		d, _ := v.AsDecimal()
		return e.writeLPS(d.String())
	case kat.KindFloat64:
		f, _ := v.AsFloat()
		return e.writeUint64(math.Float64bits(f))
	case kat.KindFloat32:
		f, _ := v.AsFloat()
		return e.writeUint32(math.Float32bits(float32(f)))
	case kat.KindInt16:
		n, _ := v.AsInt()
		return e.writeUint16(uint16(n))
	case kat.KindUint16:
		n, _ := v.AsUint()
		return e.writeUint16(uint16(n))
	case kat.KindInt32:
		n, _ := v.AsInt()
		return e.writeUint32(uint32(n))
	case kat.KindUint32:
		n, _ := v.AsUint()
		return e.writeUint32(uint32(n))
	case kat.KindInt64:
		n, _ := v.AsInt()
		return e.writeUint64(uint64(n))
	case kat.KindUint64:
		n, _ := v.AsUint()
		return e.writeUint64(n)
	case kat.KindDuration:
		return e.writeUint64(uint64(v.DurationTicks()))
	case kat.KindTime:
		return e.writeUint64(v.DateTimeRaw())
	default:
		return &EncodeError{Reason: fmt.Sprintf("cannot write %s as primitive", v.Kind())}
	}
}

// writeConverted writes a scalar as the declared element kind of a
// primitive array, converting across the numeric family where an edit
// replaced an element with a differently sized literal.
func (e *Encoder) writeConverted(elem kat.Kind, v *kat.Value) error {
	if v.Kind() == elem {
		return e.writePrimitivePayload(v)
	}
	conv, ok := convertScalar(elem, v)
	if !ok {
		return &EncodeError{Reason: fmt.Sprintf("%s array element holds %s value", elem, v.Kind())}
	}
	return e.writePrimitivePayload(conv)
}

// convertScalar rebuilds v as kind elem when the numeric family allows it.
func convertScalar(elem kat.Kind, v *kat.Value) (*kat.Value, bool) {
	var n int64
	switch v.Kind() {
	case kat.KindInt8, kat.KindInt16, kat.KindInt32, kat.KindInt64:
		n, _ = v.AsInt()
	case kat.KindUint8, kat.KindUint16, kat.KindUint32, kat.KindUint64:
		u, _ := v.AsUint()
		n = int64(u)
	case kat.KindFloat32, kat.KindFloat64:
		switch elem {
		case kat.KindFloat32:
			f, _ := v.AsFloat()
			return kat.Float32(float32(f)), true
		case kat.KindFloat64:
			f, _ := v.AsFloat()
			return kat.Float64(f), true
		}
		return nil, false
	default:
		return nil, false
	}

	switch elem {
	case kat.KindInt8:
		return kat.Int8(int8(n)), true
	case kat.KindUint8:
		return kat.Uint8(uint8(n)), true
	case kat.KindInt16:
		return kat.Int16(int16(n)), true
	case kat.KindUint16:
		return kat.Uint16(uint16(n)), true
	case kat.KindInt32:
		return kat.Int32(int32(n)), true
	case kat.KindUint32:
		return kat.Uint32(uint32(n)), true
	case kat.KindInt64:
		return kat.Int64(n), true
	case kat.KindUint64:
		return kat.Uint64(uint64(n)), true
	case kat.KindFloat32:
		return kat.Float32(float32(n)), true
	case kat.KindFloat64:
		return kat.Float64(float64(n)), true
	default:
		return nil, false
	}
}

// ============================================================
// Byte-level writes
// ============================================================

func (e *Encoder) writeByte(b byte) error {
	if err := e.w.WriteByte(b); err != nil {
		return &EncodeError{Reason: "write byte", Cause: err}
	}
	return nil
}

func (e *Encoder) writeBuf(buf []byte) error {
	if _, err := e.w.Write(buf); err != nil {
		return &EncodeError{Reason: "write bytes", Cause: err}
	}
	return nil
}

func (e *Encoder) writeUint16(n uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], n)
	return e.writeBuf(buf[:])
}

func (e *Encoder) writeUint32(n uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], n)
	return e.writeBuf(buf[:])
}

func (e *Encoder) writeInt32(n int32) error {
	return e.writeUint32(uint32(n))
}

func (e *Encoder) writeUint64(n uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	return e.writeBuf(buf[:])
}

// writeLPS writes a 7-bit length-prefixed UTF-8 string.
func (e *Encoder) writeLPS(s string) error {
	n := len(s)
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		if err := e.writeByte(b); err != nil {
			return err
		}
		if n == 0 {
			break
		}
	}
	return e.writeBuf([]byte(s))
}
