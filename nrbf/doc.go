// Package nrbf reads and writes the BinaryFormatter remoting wire format
// (MS-NRBF) at the record level, realizing object graphs as kat values.
//
// The package is the graph engine behind the editing core: Decode walks
// the record stream, consults a kat.TypeBinder for every class reference
// and produces a kat.Value graph with reference identity preserved;
// Encode walks a graph and emits an equivalent record stream, restoring
// each capture node's recorded identity verbatim.
//
// Supported records cover what BinaryFormatter emits for object graphs:
// classes with member type info (plain and system), ClassWithId reuse,
// strings, object/string/primitive arrays, member references, null runs
// and libraries. Class records without member type info and arrays of
// rank above one are rejected with a DecodeError rather than guessed at.
//
// Re-encoding is record-equivalent, not byte-identical: member type
// metadata is recomputed from the live field values, which is also how
// the original formatter treats ISerializable carriers. Object ids
// recorded at decode are reused so output is deterministic.
package nrbf
