package kat

import "strconv"

// ============================================================
// Path Expressions
// ============================================================
//
// Grammar (no whitespace inside a path):
//
//	path  := ident step*
//	step  := '.' ident | '[' digits ']'
//	ident := [A-Za-z_][A-Za-z0-9_]*
//
// Dots address fields (a capture node's fields count as its direct
// members), brackets address list elements. Indices are non-negative.

// Step is one addressing step: a field name or a list index.
type Step struct {
	Name    string
	Index   int
	IsIndex bool
}

// String renders the step the way it appears in a path.
func (s Step) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Name
}

// Path is a parsed path expression. Expr keeps the original text for
// error reporting.
type Path struct {
	Expr  string
	Steps []Step
}

// ParsePath parses a path expression. On failure it returns a
// *PathSyntaxError naming the unparsed remainder.
func ParsePath(expr string) (Path, error) {
	p := Path{Expr: expr}
	pos := 0

	// Root: a bare identifier, no leading dot.
	name, n := scanIdent(expr, pos)
	if n == 0 {
		return Path{}, &PathSyntaxError{Path: expr, Remainder: expr[pos:]}
	}
	p.Steps = append(p.Steps, Step{Name: name})
	pos += n

	for pos < len(expr) {
		switch expr[pos] {
		case '.':
			name, n := scanIdent(expr, pos+1)
			if n == 0 {
				return Path{}, &PathSyntaxError{Path: expr, Remainder: expr[pos:]}
			}
			p.Steps = append(p.Steps, Step{Name: name})
			pos += 1 + n
		case '[':
			digits, n := scanDigits(expr, pos+1)
			if n == 0 || pos+1+n >= len(expr) || expr[pos+1+n] != ']' {
				return Path{}, &PathSyntaxError{Path: expr, Remainder: expr[pos:]}
			}
			idx, err := strconv.Atoi(digits)
			if err != nil {
				return Path{}, &PathSyntaxError{Path: expr, Remainder: expr[pos:]}
			}
			p.Steps = append(p.Steps, Step{Index: idx, IsIndex: true})
			pos += 1 + n + 1
		default:
			return Path{}, &PathSyntaxError{Path: expr, Remainder: expr[pos:]}
		}
	}
	return p, nil
}

// scanIdent scans an identifier at pos and returns it with its length.
func scanIdent(s string, pos int) (string, int) {
	if pos >= len(s) || !isIdentStart(s[pos]) {
		return "", 0
	}
	end := pos + 1
	for end < len(s) && isIdentCont(s[end]) {
		end++
	}
	return s[pos:end], end - pos
}

// scanDigits scans a run of decimal digits at pos.
func scanDigits(s string, pos int) (string, int) {
	end := pos
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[pos:end], end - pos
}

func isIdentStart(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_'
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
