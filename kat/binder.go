package kat

import "strings"

// Decision is the binder's verdict for one recorded type reference.
type Decision uint8

const (
	// DecideCapture redirects the type to the generic capture shape.
	DecideCapture Decision = iota
	// DecideNative resolves the type to the tool's framework handling.
	DecideNative
	// DecideOpaque is the best-effort fallback for everything else.
	DecideOpaque
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case DecideCapture:
		return "capture"
	case DecideNative:
		return "native"
	case DecideOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// TypeBinder decides how the wire engine realizes a recorded type
// reference. library is the recorded assembly name, empty for system
// records.
type TypeBinder interface {
	Resolve(library, typeName string) Decision
}

// Defaults for the title the tool was written against.
const (
	DefaultPrefix = "Everbyte.TextGame.Saving"
	DefaultVendor = "Everbyte"
)

// Binder is the redirection policy. In order:
//
//  1. A type or assembly name under Prefix is a save-data type: capture.
//  2. A system record (no assembly, or mscorlib) resolves natively.
//  3. A type name containing Vendor (case-insensitive) is an obfuscated
//     or renamed type of the same title: capture.
//  4. Everything else is opaque.
//
// Resolve is pure and total; there is no error case.
type Binder struct {
	Prefix string // reserved save-data namespace prefix
	Vendor string // vendor substring, matched case-insensitively
}

// NewBinder returns a binder with the default title policy.
func NewBinder() *Binder {
	return &Binder{Prefix: DefaultPrefix, Vendor: DefaultVendor}
}

// Resolve implements TypeBinder.
func (b *Binder) Resolve(library, typeName string) Decision {
	if b.Prefix != "" {
		if strings.HasPrefix(typeName, b.Prefix) || strings.HasPrefix(library, b.Prefix) {
			return DecideCapture
		}
	}
	if isSystemLibrary(library) {
		return DecideNative
	}
	if b.Vendor != "" {
		if strings.Contains(strings.ToLower(typeName), strings.ToLower(b.Vendor)) {
			return DecideCapture
		}
	}
	return DecideOpaque
}

// isSystemLibrary mirrors the reach of default type resolution in the
// original runtime: system-class records carry no assembly name, and
// explicit mscorlib references resolve without extra assemblies loaded.
func isSystemLibrary(library string) bool {
	return library == "" || strings.HasPrefix(library, "mscorlib")
}
