package kat

import "testing"

func TestBinder_Policy(t *testing.T) {
	b := NewBinder()

	tests := []struct {
		name     string
		library  string
		typeName string
		want     Decision
	}{
		{"save type by name", "SomeAssembly", "Everbyte.TextGame.Saving.PersData", DecideCapture},
		{"save type by assembly", "Everbyte.TextGame.Saving", "PersData", DecideCapture},
		{"system record", "", "System.Collections.Generic.List`1[[System.String]]", DecideNative},
		{"mscorlib", "mscorlib, Version=4.0.0.0", "System.Guid", DecideNative},
		{"vendor substring", "Game.Core", "Obfuscated.everbyte.Internal+State", DecideCapture},
		{"vendor case-insensitive", "Game.Core", "EVERBYTE.Thing", DecideCapture},
		{"unknown", "ThirdParty.Lib", "ThirdParty.Widget", DecideOpaque},
		// The reserved prefix wins even over would-be native names.
		{"prefix beats native", "mscorlib", "Everbyte.TextGame.Saving.List`1", DecideCapture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Resolve(tt.library, tt.typeName); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %s, want %s", tt.library, tt.typeName, got, tt.want)
			}
		})
	}
}

func TestBinder_CustomPolicy(t *testing.T) {
	b := &Binder{Prefix: "Acme.Save", Vendor: "acme"}

	if got := b.Resolve("Acme.Save", "Anything"); got != DecideCapture {
		t.Errorf("prefix on assembly: got %s", got)
	}
	if got := b.Resolve("Other", "Internal.AcmeHelper"); got != DecideCapture {
		t.Errorf("vendor substring: got %s", got)
	}
	if got := b.Resolve("Other", "Everbyte.TextGame.Saving.PersData"); got != DecideOpaque {
		t.Errorf("default prefix must not apply: got %s", got)
	}

	// Empty policy strings disable their rules instead of matching
	// everything.
	empty := &Binder{}
	if got := empty.Resolve("ThirdParty", "ThirdParty.Widget"); got != DecideOpaque {
		t.Errorf("empty policy: got %s", got)
	}
}
