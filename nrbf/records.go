package nrbf

import "github.com/duskwood-tools/katedit/kat"

// recordType identifies a serialization record.
type recordType byte

const (
	recSerializedStreamHeader        recordType = 0
	recClassWithID                   recordType = 1
	recSystemClassWithMembers        recordType = 2
	recClassWithMembers              recordType = 3
	recSystemClassWithMembersAndType recordType = 4
	recClassWithMembersAndTypes      recordType = 5
	recBinaryObjectString            recordType = 6
	recBinaryArray                   recordType = 7
	recMemberPrimitiveTyped          recordType = 8
	recMemberReference               recordType = 9
	recObjectNull                    recordType = 10
	recMessageEnd                    recordType = 11
	recBinaryLibrary                 recordType = 12
	recObjectNullMultiple256         recordType = 13
	recObjectNullMultiple            recordType = 14
	recArraySinglePrimitive          recordType = 15
	recArraySingleObject             recordType = 16
	recArraySingleString             recordType = 17
)

func (r recordType) String() string {
	switch r {
	case recSerializedStreamHeader:
		return "SerializedStreamHeader"
	case recClassWithID:
		return "ClassWithId"
	case recSystemClassWithMembers:
		return "SystemClassWithMembers"
	case recClassWithMembers:
		return "ClassWithMembers"
	case recSystemClassWithMembersAndType:
		return "SystemClassWithMembersAndTypes"
	case recClassWithMembersAndTypes:
		return "ClassWithMembersAndTypes"
	case recBinaryObjectString:
		return "BinaryObjectString"
	case recBinaryArray:
		return "BinaryArray"
	case recMemberPrimitiveTyped:
		return "MemberPrimitiveTyped"
	case recMemberReference:
		return "MemberReference"
	case recObjectNull:
		return "ObjectNull"
	case recMessageEnd:
		return "MessageEnd"
	case recBinaryLibrary:
		return "BinaryLibrary"
	case recObjectNullMultiple256:
		return "ObjectNullMultiple256"
	case recObjectNullMultiple:
		return "ObjectNullMultiple"
	case recArraySinglePrimitive:
		return "ArraySinglePrimitive"
	case recArraySingleObject:
		return "ArraySingleObject"
	case recArraySingleString:
		return "ArraySingleString"
	default:
		return "Unknown"
	}
}

// binaryType classifies a class member or array element.
type binaryType byte

const (
	btPrimitive      binaryType = 0
	btString         binaryType = 1
	btObject         binaryType = 2
	btSystemClass    binaryType = 3
	btClass          binaryType = 4
	btObjectArray    binaryType = 5
	btStringArray    binaryType = 6
	btPrimitiveArray binaryType = 7
)

// primitiveType identifies an inline primitive encoding.
type primitiveType byte

const (
	ptBoolean  primitiveType = 1
	ptByte     primitiveType = 2
	ptChar     primitiveType = 3
	ptDecimal  primitiveType = 5
	ptDouble   primitiveType = 6
	ptInt16    primitiveType = 7
	ptInt32    primitiveType = 8
	ptInt64    primitiveType = 9
	ptSByte    primitiveType = 10
	ptSingle   primitiveType = 11
	ptTimeSpan primitiveType = 12
	ptDateTime primitiveType = 13
	ptUInt16   primitiveType = 14
	ptUInt32   primitiveType = 15
	ptUInt64   primitiveType = 16
	ptNull     primitiveType = 17
	ptString   primitiveType = 18
)

// binaryArrayType classifies BinaryArray shapes.
type binaryArrayType byte

const (
	baSingle            binaryArrayType = 0
	baJagged            binaryArrayType = 1
	baRectangular       binaryArrayType = 2
	baSingleOffset      binaryArrayType = 3
	baJaggedOffset      binaryArrayType = 4
	baRectangularOffset binaryArrayType = 5
)

// primitiveKind maps a wire primitive type to the value kind carrying it.
func primitiveKind(pt primitiveType) (kat.Kind, bool) {
	switch pt {
	case ptBoolean:
		return kat.KindBool, true
	case ptByte:
		return kat.KindUint8, true
	case ptChar:
		return kat.KindChar, true
	case ptDecimal:
		return kat.KindDecimal, true
	case ptDouble:
		return kat.KindFloat64, true
	case ptInt16:
		return kat.KindInt16, true
	case ptInt32:
		return kat.KindInt32, true
	case ptInt64:
		return kat.KindInt64, true
	case ptSByte:
		return kat.KindInt8, true
	case ptSingle:
		return kat.KindFloat32, true
	case ptTimeSpan:
		return kat.KindDuration, true
	case ptDateTime:
		return kat.KindTime, true
	case ptUInt16:
		return kat.KindUint16, true
	case ptUInt32:
		return kat.KindUint32, true
	case ptUInt64:
		return kat.KindUint64, true
	default:
		return kat.KindNull, false
	}
}

// kindPrimitive maps a scalar value kind to its wire primitive type.
func kindPrimitive(k kat.Kind) (primitiveType, bool) {
	switch k {
	case kat.KindBool:
		return ptBoolean, true
	case kat.KindUint8:
		return ptByte, true
	case kat.KindChar:
		return ptChar, true
	case kat.KindDecimal:
		return ptDecimal, true
	case kat.KindFloat64:
		return ptDouble, true
	case kat.KindInt16:
		return ptInt16, true
	case kat.KindInt32:
		return ptInt32, true
	case kat.KindInt64:
		return ptInt64, true
	case kat.KindInt8:
		return ptSByte, true
	case kat.KindFloat32:
		return ptSingle, true
	case kat.KindDuration:
		return ptTimeSpan, true
	case kat.KindTime:
		return ptDateTime, true
	case kat.KindUint16:
		return ptUInt16, true
	case kat.KindUint32:
		return ptUInt32, true
	case kat.KindUint64:
		return ptUInt64, true
	default:
		return 0, false
	}
}
