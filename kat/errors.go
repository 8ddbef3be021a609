package kat

import "fmt"

// PathSyntaxError reports a path expression that does not match the
// grammar, with the remainder that failed to parse.
type PathSyntaxError struct {
	Path      string
	Remainder string
}

func (e *PathSyntaxError) Error() string {
	return fmt.Sprintf("invalid path %q near %q", e.Path, e.Remainder)
}

// PathResolutionError reports a syntactically valid path that does not
// address an existing slot in the graph.
type PathResolutionError struct {
	Path   string
	Reason string
}

func (e *PathResolutionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot resolve path %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("cannot resolve path %q", e.Path)
}

// AssignmentTypeError reports a terminal step whose target cannot accept
// the coerced value.
type AssignmentTypeError struct {
	Path   string
	Target string // description of the rejecting target
}

func (e *AssignmentTypeError) Error() string {
	return fmt.Sprintf("cannot assign at %q: %s", e.Path, e.Target)
}
