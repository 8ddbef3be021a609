package nrbf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/duskwood-tools/katedit/kat"
)

// Allocation guards for length fields read from the stream.
const (
	maxStringLen = 64 << 20
	maxArrayLen  = 16 << 20
	maxMembers   = 1 << 16
)

// Stats summarizes one decode for diagnostics.
type Stats struct {
	Objects  int // class instances decoded
	Captured int // redirected to the capture shape
	Native   int // resolved to framework handling
	Opaque   int // fallback objects
	Strings  int
	Arrays   int
}

// Decoder reads one serialized object graph.
type Decoder struct {
	r      *bufio.Reader
	offset int64
	binder kat.TypeBinder

	rootID    int32
	objects   map[int32]*kat.Value
	metas     map[int32]*classMeta
	libraries map[int32]string
	pending   map[*kat.Value]int32

	stats Stats
}

// classMeta is the reusable class metadata referenced by ClassWithId.
type classMeta struct {
	name    string
	library string
	members []string
	types   []memberType
}

// memberType is one member's declared wire type.
type memberType struct {
	bt        binaryType
	prim      primitiveType // btPrimitive / btPrimitiveArray
	className string        // btClass / btSystemClass
	libraryID int32         // btClass
}

// NewDecoder creates a decoder over r using the given redirection policy.
func NewDecoder(r io.Reader, binder kat.TypeBinder) *Decoder {
	return &Decoder{
		r:         bufio.NewReader(r),
		binder:    binder,
		objects:   make(map[int32]*kat.Value),
		metas:     make(map[int32]*classMeta),
		libraries: make(map[int32]string),
		pending:   make(map[*kat.Value]int32),
	}
}

// Decode parses the stream and returns the root of the object graph.
// Reference identity is preserved: two references to the same stream
// object yield the same *kat.Value.
func Decode(r io.Reader, binder kat.TypeBinder) (*kat.Value, error) {
	return NewDecoder(r, binder).Decode()
}

// Decode parses the whole stream. It may be called once.
func (d *Decoder) Decode() (*kat.Value, error) {
	if err := d.readHeader(); err != nil {
		return nil, err
	}
	for {
		rt, err := d.readRecordType()
		if err != nil {
			return nil, err
		}
		if rt == recMessageEnd {
			break
		}
		if rt == recBinaryLibrary {
			if err := d.readLibrary(); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := d.readRecord(rt, true); err != nil {
			return nil, err
		}
	}
	if err := d.resolveReferences(); err != nil {
		return nil, err
	}
	root, ok := d.objects[d.rootID]
	if !ok {
		return nil, d.errf("root object %d not present in stream", d.rootID)
	}
	return root, nil
}

// Stats returns decode statistics. Valid after Decode returns.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// ============================================================
// Record dispatch
// ============================================================

func (d *Decoder) readHeader() error {
	rt, err := d.readRecordType()
	if err != nil {
		return err
	}
	if rt != recSerializedStreamHeader {
		return d.errf("expected stream header, got %s", rt)
	}
	rootID, err := d.readInt32()
	if err != nil {
		return err
	}
	if _, err := d.readInt32(); err != nil { // headerId, unused
		return err
	}
	major, err := d.readInt32()
	if err != nil {
		return err
	}
	if _, err := d.readInt32(); err != nil { // minor
		return err
	}
	if major != 1 {
		return d.errf("unsupported wire version %d", major)
	}
	d.rootID = rootID
	return nil
}

// readRecord parses one record whose type byte was already consumed.
// topLevel restricts the record set to those that define objects.
func (d *Decoder) readRecord(rt recordType, topLevel bool) (*kat.Value, error) {
	switch rt {
	case recClassWithMembersAndTypes, recSystemClassWithMembersAndType, recClassWithID:
		return d.readClass(rt)
	case recClassWithMembers, recSystemClassWithMembers:
		return nil, d.errf("%s records carry no member types and are not supported", rt)
	case recBinaryObjectString:
		return d.readString()
	case recArraySingleObject, recArraySingleString, recArraySinglePrimitive:
		return d.readArraySingle(rt)
	case recBinaryArray:
		return d.readBinaryArray()
	case recMemberPrimitiveTyped:
		if topLevel {
			return nil, d.errf("unexpected top-level %s record", rt)
		}
		return d.readMemberPrimitiveTyped()
	default:
		return nil, d.errf("unexpected record %s", rt)
	}
}

// readValueRecord reads one value in member/element position. The second
// result is the null run length: n > 1 means n consecutive nulls.
func (d *Decoder) readValueRecord() (*kat.Value, int, error) {
	for {
		rt, err := d.readRecordType()
		if err != nil {
			return nil, 0, err
		}
		switch rt {
		case recBinaryLibrary:
			if err := d.readLibrary(); err != nil {
				return nil, 0, err
			}
			continue
		case recObjectNull:
			return kat.Null(), 1, nil
		case recObjectNullMultiple256:
			n, err := d.readByte()
			if err != nil {
				return nil, 0, err
			}
			if n == 0 {
				return nil, 0, d.errf("invalid null run length 0")
			}
			return kat.Null(), int(n), nil
		case recObjectNullMultiple:
			n, err := d.readInt32()
			if err != nil {
				return nil, 0, err
			}
			if n <= 0 {
				return nil, 0, d.errf("invalid null run length %d", n)
			}
			return kat.Null(), int(n), nil
		case recMemberReference:
			id, err := d.readInt32()
			if err != nil {
				return nil, 0, err
			}
			ph := kat.Null()
			d.pending[ph] = id
			return ph, 1, nil
		default:
			v, err := d.readRecord(rt, false)
			if err != nil {
				return nil, 0, err
			}
			return v, 1, nil
		}
	}
}

// ============================================================
// Classes
// ============================================================

func (d *Decoder) readClass(rt recordType) (*kat.Value, error) {
	objectID, err := d.readInt32()
	if err != nil {
		return nil, err
	}

	var meta *classMeta
	switch rt {
	case recClassWithID:
		metadataID, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		m, ok := d.metas[metadataID]
		if !ok {
			return nil, d.errf("ClassWithId %d references unknown metadata %d", objectID, metadataID)
		}
		meta = m
	default:
		m, err := d.readClassMeta(rt)
		if err != nil {
			return nil, err
		}
		meta = m
	}

	decision := d.binder.Resolve(meta.library, meta.name)
	var flavor kat.Flavor
	switch decision {
	case kat.DecideCapture:
		flavor = kat.FlavorCapture
		d.stats.Captured++
	case kat.DecideNative:
		flavor = kat.FlavorNative
		d.stats.Native++
	default:
		flavor = kat.FlavorOpaque
		d.stats.Opaque++
	}
	d.stats.Objects++

	obj := kat.NewObject(flavor, meta.name, meta.library)
	val := kat.Obj(obj)
	val.SetObjectID(objectID)
	if err := d.register(objectID, val); err != nil {
		return nil, err
	}
	d.metas[objectID] = meta

	for i := 0; i < len(meta.members); {
		mt := meta.types[i]
		if mt.bt == btPrimitive {
			v, err := d.readPrimitive(mt.prim)
			if err != nil {
				return nil, err
			}
			obj.AddField(meta.members[i], v)
			i++
			continue
		}
		v, run, err := d.readValueRecord()
		if err != nil {
			return nil, err
		}
		if run > 1 {
			if i+run > len(meta.members) {
				return nil, d.errf("null run %d exceeds remaining members of %s", run, meta.name)
			}
			for j := 0; j < run; j++ {
				obj.AddField(meta.members[i], kat.Null())
				i++
			}
			continue
		}
		obj.AddField(meta.members[i], v)
		i++
	}
	return val, nil
}

func (d *Decoder) readClassMeta(rt recordType) (*classMeta, error) {
	name, err := d.readLPS()
	if err != nil {
		return nil, err
	}
	count, err := d.readInt32()
	if err != nil {
		return nil, err
	}
	if count < 0 || count > maxMembers {
		return nil, d.errf("class %s declares %d members", name, count)
	}
	members := make([]string, count)
	for i := range members {
		if members[i], err = d.readLPS(); err != nil {
			return nil, err
		}
	}
	types, err := d.readMemberTypes(int(count))
	if err != nil {
		return nil, err
	}
	library := ""
	if rt == recClassWithMembersAndTypes {
		libID, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		lib, ok := d.libraries[libID]
		if !ok {
			return nil, d.errf("class %s references unknown library %d", name, libID)
		}
		library = lib
	}
	return &classMeta{name: name, library: library, members: members, types: types}, nil
}

func (d *Decoder) readMemberTypes(count int) ([]memberType, error) {
	types := make([]memberType, count)
	for i := range types {
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		types[i].bt = binaryType(b)
	}
	for i := range types {
		switch types[i].bt {
		case btPrimitive, btPrimitiveArray:
			b, err := d.readByte()
			if err != nil {
				return nil, err
			}
			types[i].prim = primitiveType(b)
		case btSystemClass:
			s, err := d.readLPS()
			if err != nil {
				return nil, err
			}
			types[i].className = s
		case btClass:
			s, err := d.readLPS()
			if err != nil {
				return nil, err
			}
			libID, err := d.readInt32()
			if err != nil {
				return nil, err
			}
			types[i].className = s
			types[i].libraryID = libID
		}
	}
	return types, nil
}

// ============================================================
// Strings, arrays, primitives
// ============================================================

func (d *Decoder) readString() (*kat.Value, error) {
	id, err := d.readInt32()
	if err != nil {
		return nil, err
	}
	s, err := d.readLPS()
	if err != nil {
		return nil, err
	}
	v := kat.Str(s)
	v.SetObjectID(id)
	if err := d.register(id, v); err != nil {
		return nil, err
	}
	d.stats.Strings++
	return v, nil
}

func (d *Decoder) readLibrary() error {
	id, err := d.readInt32()
	if err != nil {
		return err
	}
	name, err := d.readLPS()
	if err != nil {
		return err
	}
	if _, ok := d.libraries[id]; ok {
		return d.errf("duplicate library id %d", id)
	}
	d.libraries[id] = name
	return nil
}

func (d *Decoder) readArraySingle(rt recordType) (*kat.Value, error) {
	id, err := d.readInt32()
	if err != nil {
		return nil, err
	}
	length, err := d.readInt32()
	if err != nil {
		return nil, err
	}
	if length < 0 || length > maxArrayLen {
		return nil, d.errf("array %d declares length %d", id, length)
	}

	var v *kat.Value
	switch rt {
	case recArraySinglePrimitive:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		v, err = d.readPrimitiveElements(primitiveType(b), int(length))
		if err != nil {
			return nil, err
		}
	case recArraySingleString:
		v, err = d.readRecordElements(kat.ArrayString, int(length))
		if err != nil {
			return nil, err
		}
	default:
		v, err = d.readRecordElements(kat.ArrayObject, int(length))
		if err != nil {
			return nil, err
		}
	}
	v.SetObjectID(id)
	if err := d.register(id, v); err != nil {
		return nil, err
	}
	d.stats.Arrays++
	return v, nil
}

func (d *Decoder) readBinaryArray() (*kat.Value, error) {
	id, err := d.readInt32()
	if err != nil {
		return nil, err
	}
	bat, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch binaryArrayType(bat) {
	case baSingle, baJagged:
	default:
		return nil, d.errf("BinaryArray %d has unsupported shape %d", id, bat)
	}
	rank, err := d.readInt32()
	if err != nil {
		return nil, err
	}
	if rank != 1 {
		return nil, d.errf("BinaryArray %d has rank %d, only rank 1 is supported", id, rank)
	}
	length, err := d.readInt32()
	if err != nil {
		return nil, err
	}
	if length < 0 || length > maxArrayLen {
		return nil, d.errf("array %d declares length %d", id, length)
	}
	var mt memberType
	b, err := d.readByte()
	if err != nil {
		return nil, err
	}
	mt.bt = binaryType(b)
	switch mt.bt {
	case btPrimitive, btPrimitiveArray:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		mt.prim = primitiveType(b)
	case btSystemClass:
		if mt.className, err = d.readLPS(); err != nil {
			return nil, err
		}
	case btClass:
		if mt.className, err = d.readLPS(); err != nil {
			return nil, err
		}
		if mt.libraryID, err = d.readInt32(); err != nil {
			return nil, err
		}
	}

	var v *kat.Value
	if mt.bt == btPrimitive {
		v, err = d.readPrimitiveElements(mt.prim, int(length))
	} else {
		flavor := kat.ArrayObject
		if mt.bt == btString || mt.bt == btStringArray {
			flavor = kat.ArrayString
		}
		v, err = d.readRecordElements(flavor, int(length))
	}
	if err != nil {
		return nil, err
	}
	v.SetObjectID(id)
	if err := d.register(id, v); err != nil {
		return nil, err
	}
	d.stats.Arrays++
	return v, nil
}

func (d *Decoder) readPrimitiveElements(pt primitiveType, length int) (*kat.Value, error) {
	if pt == ptByte {
		buf := make([]byte, length)
		if err := d.readFull(buf); err != nil {
			return nil, err
		}
		return kat.Bytes(buf), nil
	}
	elem, ok := primitiveKind(pt)
	if !ok {
		return nil, d.errf("invalid primitive element type %d", pt)
	}
	items := make([]*kat.Value, length)
	for i := range items {
		v, err := d.readPrimitive(pt)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return kat.List(kat.ArrayPrimitive, elem, items...), nil
}

func (d *Decoder) readRecordElements(flavor kat.ArrayFlavor, length int) (*kat.Value, error) {
	items := make([]*kat.Value, 0, length)
	for len(items) < length {
		v, run, err := d.readValueRecord()
		if err != nil {
			return nil, err
		}
		if run > 1 {
			if len(items)+run > length {
				return nil, d.errf("null run %d exceeds array length %d", run, length)
			}
			for j := 0; j < run; j++ {
				items = append(items, kat.Null())
			}
			continue
		}
		items = append(items, v)
	}
	return kat.List(flavor, kat.KindNull, items...), nil
}

func (d *Decoder) readMemberPrimitiveTyped() (*kat.Value, error) {
	b, err := d.readByte()
	if err != nil {
		return nil, err
	}
	return d.readPrimitive(primitiveType(b))
}

func (d *Decoder) readPrimitive(pt primitiveType) (*kat.Value, error) {
	switch pt {
	case ptBoolean:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return kat.Bool(b != 0), nil
	case ptByte:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return kat.Uint8(b), nil
	case ptSByte:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return kat.Int8(int8(b)), nil
	case ptChar:
		r, err := d.readChar()
		if err != nil {
			return nil, err
		}
		return kat.Char(r), nil
	case ptDecimal:
		s, err := d.readLPS()
		if err != nil {
			return nil, err
		}
		dec, err := decimal.NewFromString(s)
		if err != nil {
			return nil, d.errf("invalid decimal %q: %v", s, err)
		}
		return kat.Dec(dec), nil
	case ptDouble:
		bits, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		return kat.Float64(math.Float64frombits(bits)), nil
	case ptSingle:
		bits, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		return kat.Float32(math.Float32frombits(bits)), nil
	case ptInt16:
		n, err := d.readUint16()
		if err != nil {
			return nil, err
		}
		return kat.Int16(int16(n)), nil
	case ptUInt16:
		n, err := d.readUint16()
		if err != nil {
			return nil, err
		}
		return kat.Uint16(n), nil
	case ptInt32:
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		return kat.Int32(n), nil
	case ptUInt32:
		n, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		return kat.Uint32(n), nil
	case ptInt64:
		n, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		return kat.Int64(int64(n)), nil
	case ptUInt64:
		n, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		return kat.Uint64(n), nil
	case ptTimeSpan:
		n, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		return kat.Duration(int64(n)), nil
	case ptDateTime:
		n, err := d.readUint64()
		if err != nil {
			return nil, err
		}
		return kat.DateTime(n), nil
	case ptNull:
		return kat.Null(), nil
	case ptString:
		s, err := d.readLPS()
		if err != nil {
			return nil, err
		}
		return kat.Str(s), nil
	default:
		return nil, d.errf("invalid primitive type %d", pt)
	}
}

// ============================================================
// Bookkeeping
// ============================================================

func (d *Decoder) register(id int32, v *kat.Value) error {
	if _, ok := d.objects[id]; ok {
		return d.errf("duplicate object id %d", id)
	}
	d.objects[id] = v
	return nil
}

// resolveReferences replaces MemberReference placeholders with the
// objects they name. Every container is registered by id, so one sweep
// over the object table reaches every slot.
func (d *Decoder) resolveReferences() error {
	for _, v := range d.objects {
		switch v.Kind() {
		case kat.KindObject:
			o := v.Object()
			for _, f := range o.Fields() {
				id, ok := d.pending[f.Value]
				if !ok {
					continue
				}
				target, found := d.objects[id]
				if !found {
					return d.errf("reference to unknown object %d", id)
				}
				o.SetField(f.Name, target)
			}
		case kat.KindList:
			items := v.Items()
			for i, it := range items {
				id, ok := d.pending[it]
				if !ok {
					continue
				}
				target, found := d.objects[id]
				if !found {
					return d.errf("reference to unknown object %d", id)
				}
				items[i] = target
			}
		}
	}
	return nil
}

// ============================================================
// Byte-level reads
// ============================================================

func (d *Decoder) readRecordType() (recordType, error) {
	b, err := d.readByte()
	if err != nil {
		return 0, err
	}
	return recordType(b), nil
}

func (d *Decoder) readByte() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, d.errWrap("read byte", err)
	}
	d.offset++
	return b, nil
}

func (d *Decoder) readFull(buf []byte) error {
	n, err := io.ReadFull(d.r, buf)
	d.offset += int64(n)
	if err != nil {
		return d.errWrap("read bytes", err)
	}
	return nil
}

func (d *Decoder) readUint16() (uint16, error) {
	var buf [2]byte
	if err := d.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (d *Decoder) readUint32() (uint32, error) {
	var buf [4]byte
	if err := d.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (d *Decoder) readInt32() (int32, error) {
	n, err := d.readUint32()
	return int32(n), err
}

func (d *Decoder) readUint64() (uint64, error) {
	var buf [8]byte
	if err := d.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// readLPS reads a length-prefixed string: a 7-bit variable-length byte
// count followed by that many UTF-8 bytes.
func (d *Decoder) readLPS() (string, error) {
	length := 0
	shift := 0
	for i := 0; i < 5; i++ {
		b, err := d.readByte()
		if err != nil {
			return "", err
		}
		length |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if i == 4 {
			return "", d.errf("malformed string length")
		}
	}
	if length < 0 || length > maxStringLen {
		return "", d.errf("string length %d out of range", length)
	}
	buf := make([]byte, length)
	if err := d.readFull(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// readChar reads one UTF-8 encoded character.
func (d *Decoder) readChar() (rune, error) {
	b, err := d.readByte()
	if err != nil {
		return 0, err
	}
	n := charLen(b)
	if n == 0 {
		return 0, d.errf("malformed char encoding")
	}
	buf := make([]byte, n)
	buf[0] = b
	if n > 1 {
		if err := d.readFull(buf[1:]); err != nil {
			return 0, err
		}
	}
	r, size := utf8.DecodeRune(buf)
	if r == utf8.RuneError && size <= 1 {
		return 0, d.errf("malformed char encoding")
	}
	return r, nil
}

func charLen(b byte) int {
	switch {
	case b&0x80 == 0:
		return 1
	case b&0xe0 == 0xc0:
		return 2
	case b&0xf0 == 0xe0:
		return 3
	case b&0xf8 == 0xf0:
		return 4
	default:
		return 0
	}
}

func (d *Decoder) errf(format string, args ...any) *DecodeError {
	return &DecodeError{Offset: d.offset, Reason: fmt.Sprintf(format, args...)}
}

func (d *Decoder) errWrap(reason string, cause error) *DecodeError {
	return &DecodeError{Offset: d.offset, Reason: reason, Cause: cause}
}
