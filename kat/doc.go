// Package kat implements the object model and editing core for Everbyte
// .kat save files, which are BinaryFormatter object graphs whose original
// type definitions are no longer available.
//
// The package is built around four pieces:
//
//   - Value, a closed tagged union over the stream's scalar family plus
//     arrays and class objects. Class objects whose type the Binder
//     redirects become capture nodes: they record the original type
//     identity and field table verbatim so the graph can be re-encoded
//     without the defining assemblies.
//   - Binder, the type-redirection policy consulted by the wire engine
//     for every type reference it decodes.
//   - Project, which renders a decoded graph as a JSON-compatible tree
//     for inspection, with cycle-safe traversal.
//   - ParsePath / Coerce / Assign, the path-addressed mutation surface:
//     dotted/bracketed paths address individual slots, literals are
//     coerced to the stream's primitive types, and assignment replaces
//     exactly one existing slot.
//
// The byte-level wire format lives in the nrbf package; this package never
// reads or writes stream bytes.
package kat
