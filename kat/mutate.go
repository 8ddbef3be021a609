package kat

import "fmt"

// ============================================================
// Path Mutator
// ============================================================
//
// Assignment walks every step but the last to find the parent container,
// then writes the new value into the slot the last step names. Before
// each step the current node is normalized: a capture (or opaque) object
// stands in for its own field table, and native framework collections
// stand in for their live element view. Only existing slots may be
// written; nothing ever grows.

// Assign writes v at the slot addressed by path. The path must resolve
// against the current graph; failures return *PathResolutionError (or
// *AssignmentTypeError when the terminal container rejects the value)
// and leave the graph untouched.
func Assign(root *Value, path Path, v *Value) error {
	if len(path.Steps) == 0 {
		return &PathResolutionError{Path: path.Expr, Reason: "empty path"}
	}
	cur := root
	for _, step := range path.Steps[:len(path.Steps)-1] {
		next, err := resolveStep(cur, step, path)
		if err != nil {
			return err
		}
		cur = next
	}
	return assignStep(cur, path.Steps[len(path.Steps)-1], v, path)
}

// Resolve walks a full path and returns the addressed value. It applies
// the same normalization rules as Assign.
func Resolve(root *Value, path Path) (*Value, error) {
	cur := root
	for _, step := range path.Steps {
		next, err := resolveStep(cur, step, path)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// resolveStep applies one non-terminal step to cur.
func resolveStep(cur *Value, step Step, path Path) (*Value, error) {
	if step.IsIndex {
		slots, err := sequenceOf(cur, path)
		if err != nil {
			return nil, err
		}
		if step.Index >= len(slots) {
			return nil, &PathResolutionError{
				Path:   path.Expr,
				Reason: fmt.Sprintf("index %d out of range (length %d)", step.Index, len(slots)),
			}
		}
		return slots[step.Index], nil
	}

	switch cur.Kind() {
	case KindObject:
		o := cur.Object()
		if pairs, ok := o.mappingPairs(); ok {
			po, err := findPair(pairs, step.Name, path)
			if err != nil {
				return nil, err
			}
			_, valueField, _ := po.pairSlots()
			v, _ := po.Field(valueField)
			return v, nil
		}
		// Capture and opaque objects expose their field table directly;
		// so do native classes with no special view.
		v, ok := o.Field(step.Name)
		if !ok {
			return nil, &PathResolutionError{
				Path:   path.Expr,
				Reason: fmt.Sprintf("no field %q on %s", step.Name, o.TypeName),
			}
		}
		return v, nil
	default:
		return nil, &PathResolutionError{
			Path:   path.Expr,
			Reason: fmt.Sprintf("field %q addressed on %s value", step.Name, cur.Kind()),
		}
	}
}

// assignStep writes v into the slot the terminal step names on cur.
func assignStep(cur *Value, step Step, v *Value, path Path) error {
	if step.IsIndex {
		// Byte buffers accept integer elements in range.
		if cur.Kind() == KindBytes {
			buf, _ := cur.AsBytes()
			if step.Index >= len(buf) {
				return &PathResolutionError{
					Path:   path.Expr,
					Reason: fmt.Sprintf("index %d out of range (length %d)", step.Index, len(buf)),
				}
			}
			b, ok := byteValue(v)
			if !ok {
				return &AssignmentTypeError{Path: path.Expr, Target: "byte buffer rejects non-byte value"}
			}
			buf[step.Index] = b
			return nil
		}
		slots, err := sequenceOf(cur, path)
		if err != nil {
			if _, scalar := err.(*PathResolutionError); scalar {
				// Terminal position: a non-sequence target is a type error.
				return &AssignmentTypeError{Path: path.Expr, Target: fmt.Sprintf("%s value is not a sequence", cur.Kind())}
			}
			return err
		}
		if step.Index >= len(slots) {
			return &PathResolutionError{
				Path:   path.Expr,
				Reason: fmt.Sprintf("index %d out of range (length %d)", step.Index, len(slots)),
			}
		}
		slots[step.Index] = v
		return nil
	}

	if cur.Kind() != KindObject {
		return &AssignmentTypeError{Path: path.Expr, Target: fmt.Sprintf("%s value is not a mapping", cur.Kind())}
	}
	o := cur.Object()
	if pairs, ok := o.mappingPairs(); ok {
		po, err := findPair(pairs, step.Name, path)
		if err != nil {
			return err
		}
		_, valueField, _ := po.pairSlots()
		po.SetField(valueField, v)
		return nil
	}
	if !o.SetField(step.Name, v) {
		return &PathResolutionError{
			Path:   path.Expr,
			Reason: fmt.Sprintf("no field %q on %s", step.Name, o.TypeName),
		}
	}
	return nil
}

// sequenceOf returns the assignable element slots of cur: a list's items,
// or a native collection's live view.
func sequenceOf(cur *Value, path Path) ([]*Value, error) {
	switch cur.Kind() {
	case KindList:
		return cur.Items(), nil
	case KindObject:
		if slots, ok := cur.Object().sequenceSlots(); ok {
			return slots, nil
		}
	}
	return nil, &PathResolutionError{
		Path:   path.Expr,
		Reason: fmt.Sprintf("index addressed on %s value", cur.Kind()),
	}
}

// findPair locates a dictionary pair by the stringified form of its key.
func findPair(pairs []*Object, name string, path Path) (*Object, error) {
	for _, po := range pairs {
		key, _, ok := po.pairSlots()
		if !ok {
			continue
		}
		if s, ok := scalarKeyString(key); ok && s == name {
			return po, nil
		}
	}
	return nil, &PathResolutionError{
		Path:   path.Expr,
		Reason: fmt.Sprintf("no key %q in dictionary", name),
	}
}

// byteValue extracts a 0..255 integer from a coerced scalar.
func byteValue(v *Value) (byte, bool) {
	if n, err := v.AsInt(); err == nil && n >= 0 && n <= 255 {
		return byte(n), true
	}
	if n, err := v.AsUint(); err == nil && n <= 255 {
		return byte(n), true
	}
	return 0, false
}
