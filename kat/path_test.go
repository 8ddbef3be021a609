package kat

import (
	"errors"
	"testing"
)

func TestParsePath_Valid(t *testing.T) {
	tests := []struct {
		input    string
		expected []Step
	}{
		{"a", []Step{{Name: "a"}}},
		{"coins", []Step{{Name: "coins"}}},
		{"a.b", []Step{{Name: "a"}, {Name: "b"}}},
		{"a.b[2].c", []Step{{Name: "a"}, {Name: "b"}, {Index: 2, IsIndex: true}, {Name: "c"}}},
		{"paths[0].memberIDs[12]", []Step{{Name: "paths"}, {Index: 0, IsIndex: true}, {Name: "memberIDs"}, {Index: 12, IsIndex: true}}},
		{"_x0[0][1]", []Step{{Name: "_x0"}, {Index: 0, IsIndex: true}, {Index: 1, IsIndex: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParsePath(tt.input)
			if err != nil {
				t.Fatalf("ParsePath failed: %v", err)
			}
			if p.Expr != tt.input {
				t.Errorf("Expr = %q, want %q", p.Expr, tt.input)
			}
			if len(p.Steps) != len(tt.expected) {
				t.Fatalf("got %d steps, want %d", len(p.Steps), len(tt.expected))
			}
			for i, s := range p.Steps {
				if s != tt.expected[i] {
					t.Errorf("step %d = %+v, want %+v", i, s, tt.expected[i])
				}
			}
		})
	}
}

func TestParsePath_Invalid(t *testing.T) {
	tests := []struct {
		input     string
		remainder string
	}{
		{"", ""},
		{"[0]", "[0]"},              // no root identifier
		{"a..b", "..b"},             // empty field name
		{".a", ".a"},                // leading dot
		{"a.b[", "["},               // unterminated index
		{"a[x]", "[x]"},             // non-numeric index
		{"a[-1]", "[-1]"},           // negative index
		{"a[1", "[1"},               // missing bracket
		{"a b", " b"},               // whitespace
		{"0a", "0a"},                // identifier cannot start with digit
		{"a[999999999999999999999]", "[999999999999999999999]"}, // overflow
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParsePath(tt.input)
			if err == nil {
				t.Fatal("expected PathSyntaxError, got nil")
			}
			var synErr *PathSyntaxError
			if !errors.As(err, &synErr) {
				t.Fatalf("expected *PathSyntaxError, got %T", err)
			}
			if synErr.Remainder != tt.remainder {
				t.Errorf("remainder = %q, want %q", synErr.Remainder, tt.remainder)
			}
			if synErr.Path != tt.input {
				t.Errorf("path = %q, want %q", synErr.Path, tt.input)
			}
		})
	}
}

func TestStep_String(t *testing.T) {
	if s := (Step{Name: "field"}).String(); s != "field" {
		t.Errorf("got %q", s)
	}
	if s := (Step{Index: 7, IsIndex: true}).String(); s != "[7]" {
		t.Errorf("got %q", s)
	}
}
