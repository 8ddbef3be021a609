package kat

import (
	"testing"
)

func TestCoerce_Table(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
		check func(t *testing.T, v *Value)
	}{
		{"true", KindBool, func(t *testing.T, v *Value) {
			if b, _ := v.AsBool(); !b {
				t.Error("want true")
			}
		}},
		{"FALSE", KindBool, nil},
		{"null", KindNull, nil},
		{"NULL", KindNull, nil},
		{"42", KindInt32, func(t *testing.T, v *Value) {
			if n, _ := v.AsInt(); n != 42 {
				t.Errorf("got %d", n)
			}
		}},
		{"-7", KindInt32, nil},
		{"2147483647", KindInt32, nil},
		{"2147483648", KindInt64, func(t *testing.T, v *Value) {
			if n, _ := v.AsInt(); n != 2147483648 {
				t.Errorf("got %d", n)
			}
		}},
		{"-2147483649", KindInt64, nil},
		{"9223372036854775808", KindDecimal, func(t *testing.T, v *Value) {
			d, _ := v.AsDecimal()
			if d.String() != "9223372036854775808" {
				t.Errorf("got %s", d)
			}
		}},
		{"3.14", KindFloat64, func(t *testing.T, v *Value) {
			if f, _ := v.AsFloat(); f != 3.14 {
				t.Errorf("got %g", f)
			}
		}},
		{"1e5", KindFloat64, func(t *testing.T, v *Value) {
			if f, _ := v.AsFloat(); f != 100000 {
				t.Errorf("got %g", f)
			}
		}},
		{".5", KindFloat64, nil},
		{"0042", KindString, func(t *testing.T, v *Value) {
			if s, _ := v.AsString(); s != "0042" {
				t.Errorf("got %q", s)
			}
		}},
		// The zero-padding rule needs a digit after the zero, so these
		// reach the float rule.
		{"0.5", KindFloat64, func(t *testing.T, v *Value) {
			if f, _ := v.AsFloat(); f != 0.5 {
				t.Errorf("got %g", f)
			}
		}},
		{"0e5", KindFloat64, func(t *testing.T, v *Value) {
			if f, _ := v.AsFloat(); f != 0 {
				t.Errorf("got %g", f)
			}
		}},
		{`"007"`, KindString, func(t *testing.T, v *Value) {
			if s, _ := v.AsString(); s != "007" {
				t.Errorf("got %q", s)
			}
		}},
		{"'hello world'", KindString, func(t *testing.T, v *Value) {
			if s, _ := v.AsString(); s != "hello world" {
				t.Errorf("got %q", s)
			}
		}},
		{`"true"`, KindString, nil},
		{"hello", KindString, nil},
		{"12abc", KindString, nil},
		{"1.2.3", KindString, nil},
		{"0", KindInt32, nil},
		{"-0042", KindInt32, func(t *testing.T, v *Value) {
			if n, _ := v.AsInt(); n != -42 {
				t.Errorf("got %d", n)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v := Coerce(tt.input)
			if v.Kind() != tt.kind {
				t.Fatalf("kind = %s, want %s", v.Kind(), tt.kind)
			}
			if tt.check != nil {
				tt.check(t, v)
			}
		})
	}
}
