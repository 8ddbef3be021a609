package nrbf

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/duskwood-tools/katedit/kat"
)

func capture(typeName string, fields ...kat.Field) *kat.Value {
	o := kat.NewObject(kat.FlavorCapture, typeName, "Assembly-CSharp")
	for _, f := range fields {
		o.AddField(f.Name, f.Value)
	}
	return kat.Obj(o)
}

// saveGraph covers every scalar kind plus nested objects, arrays and a
// shared string, the shapes real saves contain.
func saveGraph() *kat.Value {
	dec, _ := decimal.NewFromString("19.99")
	shared := kat.Str("twice")
	return capture("Everbyte.TextGame.Saving.PersData",
		kat.Field{Name: "flag", Value: kat.Bool(true)},
		kat.Field{Name: "tiny", Value: kat.Uint8(200)},
		kat.Field{Name: "stiny", Value: kat.Int8(-100)},
		kat.Field{Name: "short16", Value: kat.Int16(-30000)},
		kat.Field{Name: "ushort16", Value: kat.Uint16(60000)},
		kat.Field{Name: "coins", Value: kat.Int32(123456)},
		kat.Field{Name: "ucoins", Value: kat.Uint32(3000000000)},
		kat.Field{Name: "big", Value: kat.Int64(-1 << 40)},
		kat.Field{Name: "ubig", Value: kat.Uint64(1 << 63)},
		kat.Field{Name: "ratio", Value: kat.Float32(0.25)},
		kat.Field{Name: "precise", Value: kat.Float64(2.718281828)},
		kat.Field{Name: "price", Value: kat.Dec(dec)},
		kat.Field{Name: "initial", Value: kat.Char('é')},
		kat.Field{Name: "saved", Value: kat.DateTime(637134336000000000 | 1<<62)},
		kat.Field{Name: "played", Value: kat.Duration(36000000000)},
		kat.Field{Name: "username", Value: kat.Str("Alice")},
		kat.Field{Name: "nothing", Value: kat.Null()},
		kat.Field{Name: "blob", Value: kat.Bytes([]byte{1, 2, 3, 250})},
		kat.Field{Name: "ids", Value: kat.List(kat.ArrayPrimitive, kat.KindInt32,
			kat.Int32(7), kat.Int32(8), kat.Int32(9))},
		kat.Field{Name: "names", Value: kat.List(kat.ArrayString, kat.KindNull,
			kat.Str("a"), kat.Null(), kat.Str("b"))},
		kat.Field{Name: "mixed", Value: kat.List(kat.ArrayObject, kat.KindNull,
			kat.Int32(1),
			shared,
			kat.Null(),
			capture("Everbyte.TextGame.Saving.StoryPath",
				kat.Field{Name: "activeState", Value: kat.Bool(false)},
			),
		)},
		kat.Field{Name: "echo", Value: shared},
		kat.Field{Name: "userSettings", Value: capture("Everbyte.TextGame.Saving.UserSettings",
			kat.Field{Name: "energyCap", Value: kat.Int32(80)},
		)},
	)
}

func encodeGraph(t *testing.T, root *kat.Value) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, root); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return buf.Bytes()
}

func decodeGraph(t *testing.T, data []byte) *kat.Value {
	t.Helper()
	root, err := Decode(bytes.NewReader(data), kat.NewBinder())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return root
}

func jsonEq(t *testing.T, want, got *kat.Value) {
	t.Helper()
	wb, err := json.Marshal(kat.Project(want))
	if err != nil {
		t.Fatalf("marshal want: %v", err)
	}
	gb, err := json.Marshal(kat.Project(got))
	if err != nil {
		t.Fatalf("marshal got: %v", err)
	}
	if string(wb) != string(gb) {
		t.Errorf("graph mismatch:\nwant %s\ngot  %s", wb, gb)
	}
}

func TestRoundTrip_FullGraph(t *testing.T) {
	original := saveGraph()
	decoded := decodeGraph(t, encodeGraph(t, original))

	o := decoded.Object()
	if o == nil {
		t.Fatal("root is not an object")
	}
	if o.TypeName != "Everbyte.TextGame.Saving.PersData" {
		t.Errorf("TypeName = %q", o.TypeName)
	}
	if o.Library != "Assembly-CSharp" {
		t.Errorf("Library = %q", o.Library)
	}
	if o.Flavor != kat.FlavorCapture {
		t.Errorf("Flavor = %s", o.Flavor)
	}
	jsonEq(t, original, decoded)
}

func TestRoundTrip_StringMember(t *testing.T) {
	// String members are written as string records, not inline primitives.
	root := capture("Everbyte.TextGame.Saving.PersData",
		kat.Field{Name: "username", Value: kat.Str("Bob")},
	)
	decoded := decodeGraph(t, encodeGraph(t, root))
	name, ok := decoded.Object().Field("username")
	if !ok {
		t.Fatal("username field missing")
	}
	if s, _ := name.AsString(); s != "Bob" {
		t.Errorf("username = %q", s)
	}
}

func TestRoundTrip_FieldOrderPreserved(t *testing.T) {
	decoded := decodeGraph(t, encodeGraph(t, saveGraph()))

	want := saveGraph().Object().Fields()
	got := decoded.Object().Fields()
	if len(got) != len(want) {
		t.Fatalf("field count = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i].Name != want[i].Name {
			t.Errorf("field %d = %q, want %q", i, got[i].Name, want[i].Name)
		}
	}
}

func TestRoundTrip_SharedReferenceIdentity(t *testing.T) {
	decoded := decodeGraph(t, encodeGraph(t, saveGraph()))

	o := decoded.Object()
	mixed, _ := o.Field("mixed")
	echo, _ := o.Field("echo")
	if mixed.Items()[1] != echo {
		t.Error("shared string decoded as two distinct values")
	}
}

func TestRoundTrip_SharedObject(t *testing.T) {
	item := capture("Everbyte.TextGame.Saving.Item",
		kat.Field{Name: "n", Value: kat.Int32(1)})
	root := capture("Everbyte.TextGame.Saving.Bag",
		kat.Field{Name: "first", Value: item},
		kat.Field{Name: "second", Value: item},
	)
	decoded := decodeGraph(t, encodeGraph(t, root))

	first, _ := decoded.Object().Field("first")
	second, _ := decoded.Object().Field("second")
	if first != second {
		t.Error("shared object decoded as two distinct values")
	}
}

func TestRoundTrip_Deterministic(t *testing.T) {
	decoded := decodeGraph(t, encodeGraph(t, saveGraph()))

	first := encodeGraph(t, decoded)
	second := encodeGraph(t, decoded)
	if !bytes.Equal(first, second) {
		t.Error("re-encoding the same graph produced different bytes")
	}
}

func TestRoundTrip_EditIsolation(t *testing.T) {
	decoded := decodeGraph(t, encodeGraph(t, saveGraph()))

	path, err := kat.ParsePath("userSettings.energyCap")
	if err != nil {
		t.Fatal(err)
	}
	if err := kat.Assign(decoded, path, kat.Int32(120)); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	reloaded := decodeGraph(t, encodeGraph(t, decoded))
	jsonEq(t, decoded, reloaded)

	settings, _ := reloaded.Object().Field("userSettings")
	v, _ := settings.Object().Field("energyCap")
	if n, _ := v.AsInt(); n != 120 {
		t.Errorf("energyCap = %d after reload", n)
	}
}

func TestRoundTrip_PrimitiveArrayEditConversion(t *testing.T) {
	// An edit drops an Int32 literal into an int64 array; the encoder
	// converts it back to the declared element type.
	root := capture("Everbyte.TextGame.Saving.PersData",
		kat.Field{Name: "stamps", Value: kat.List(kat.ArrayPrimitive, kat.KindInt64,
			kat.Int64(10), kat.Int64(20))},
	)
	decoded := decodeGraph(t, encodeGraph(t, root))
	path, _ := kat.ParsePath("stamps[1]")
	if err := kat.Assign(decoded, path, kat.Coerce("30")); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	reloaded := decodeGraph(t, encodeGraph(t, decoded))
	stamps, _ := reloaded.Object().Field("stamps")
	if stamps.ElemKind() != kat.KindInt64 {
		t.Errorf("element kind = %s", stamps.ElemKind())
	}
	if n, _ := stamps.Items()[1].AsInt(); n != 30 {
		t.Errorf("stamps[1] = %d", n)
	}
}

func TestEncode_Rejections(t *testing.T) {
	t.Run("scalar root", func(t *testing.T) {
		var buf bytes.Buffer
		err := Encode(&buf, kat.Int32(1))
		var encErr *EncodeError
		if !errors.As(err, &encErr) {
			t.Fatalf("expected *EncodeError, got %v", err)
		}
	})

	t.Run("non-string in string array", func(t *testing.T) {
		root := capture("Everbyte.TextGame.Saving.PersData",
			kat.Field{Name: "names", Value: kat.List(kat.ArrayString, kat.KindNull,
				kat.Int32(1))},
		)
		var buf bytes.Buffer
		err := Encode(&buf, root)
		var encErr *EncodeError
		if !errors.As(err, &encErr) {
			t.Fatalf("expected *EncodeError, got %v", err)
		}
	})
}

func TestCompress_RoundTrip(t *testing.T) {
	plain := encodeGraph(t, saveGraph())
	if IsCompressed(plain) {
		t.Error("plain stream sniffed as gzip")
	}

	packed, err := Compress(plain)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if !IsCompressed(packed) {
		t.Error("compressed stream not sniffed as gzip")
	}

	unpacked, err := Decompress(packed)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(unpacked, plain) {
		t.Error("compression round trip altered the stream")
	}
}
