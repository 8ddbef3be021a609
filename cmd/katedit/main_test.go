package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/duskwood-tools/katedit/kat"
	"github.com/duskwood-tools/katedit/nrbf"
)

func writeFixture(t *testing.T, dir string, compressed bool) string {
	t.Helper()
	settings := kat.NewObject(kat.FlavorCapture, "Everbyte.TextGame.Saving.UserSettings", "Assembly-CSharp")
	settings.AddField("energyCap", kat.Int32(80))
	root := kat.NewObject(kat.FlavorCapture, "Everbyte.TextGame.Saving.PersData", "Assembly-CSharp")
	root.AddField("coins", kat.Int32(100))
	root.AddField("username", kat.Str("Bob"))
	root.AddField("userSettings", kat.Obj(settings))

	var buf bytes.Buffer
	if err := nrbf.Encode(&buf, kat.Obj(root)); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	data := buf.Bytes()
	if compressed {
		var err error
		if data, err = nrbf.Compress(data); err != nil {
			t.Fatalf("compress fixture: %v", err)
		}
	}
	path := filepath.Join(dir, "PersData.kat")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunEdit(t *testing.T) {
	dir := t.TempDir()
	input := writeFixture(t, dir, false)
	output := filepath.Join(dir, "Patched.kat")

	sets := []string{"coins=999999", "userSettings.energyCap=120", `username="Alice"`}
	if err := runEdit(input, output, sets, kat.DefaultPrefix, kat.DefaultVendor); err != nil {
		t.Fatalf("runEdit failed: %v", err)
	}

	root, compressed, err := decodeFile(output, kat.DefaultPrefix, kat.DefaultVendor)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if compressed {
		t.Error("plain input produced compressed output")
	}
	o := root.Object()
	coins, _ := o.Field("coins")
	if n, _ := coins.AsInt(); n != 999999 {
		t.Errorf("coins = %d", n)
	}
	name, _ := o.Field("username")
	if s, _ := name.AsString(); s != "Alice" {
		t.Errorf("username = %q", s)
	}
	settings, _ := o.Field("userSettings")
	energy, _ := settings.Object().Field("energyCap")
	if n, _ := energy.AsInt(); n != 120 {
		t.Errorf("energyCap = %d", n)
	}
}

func TestRunEdit_CompressedContainer(t *testing.T) {
	dir := t.TempDir()
	input := writeFixture(t, dir, true)
	output := filepath.Join(dir, "Patched.kat")

	if err := runEdit(input, output, []string{"coins=1"}, kat.DefaultPrefix, kat.DefaultVendor); err != nil {
		t.Fatalf("runEdit failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if !nrbf.IsCompressed(data) {
		t.Error("gzip input produced plain output")
	}
	root, _, err := decodeFile(output, kat.DefaultPrefix, kat.DefaultVendor)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	coins, _ := root.Object().Field("coins")
	if n, _ := coins.AsInt(); n != 1 {
		t.Errorf("coins = %d", n)
	}
}

func TestRunEdit_FailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	input := writeFixture(t, dir, false)
	output := filepath.Join(dir, "Patched.kat")

	tests := []struct {
		name string
		sets []string
	}{
		{"missing equals", []string{"coins999"}},
		{"bad path", []string{"coins=1", "..broken=2"}},
		{"unresolved path", []string{"coins=1", "noSuchField=2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runEdit(input, output, tt.sets, kat.DefaultPrefix, kat.DefaultVendor); err == nil {
				t.Fatal("expected error")
			}
			if _, err := os.Stat(output); !os.IsNotExist(err) {
				t.Error("output written despite failed edit")
			}
		})
	}
}
