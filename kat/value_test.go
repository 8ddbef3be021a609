package kat

import "testing"

func TestKind_IsScalar(t *testing.T) {
	scalars := []Kind{
		KindBool, KindChar,
		KindInt8, KindUint8, KindInt16, KindUint16,
		KindInt32, KindUint32, KindInt64, KindUint64,
		KindFloat32, KindFloat64,
		KindDecimal, KindTime, KindDuration,
	}
	for _, k := range scalars {
		if !k.IsScalar() {
			t.Errorf("%s should be scalar", k)
		}
	}

	// Strings and containers are reference values, never inline primitives.
	references := []Kind{KindNull, KindString, KindBytes, KindList, KindObject}
	for _, k := range references {
		if k.IsScalar() {
			t.Errorf("%s should not be scalar", k)
		}
	}
}
