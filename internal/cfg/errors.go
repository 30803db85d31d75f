package cfg

import (
	"fmt"
	"strings"
)

// Pos locates a line in a source file for error reporting.
type Pos struct {
	File string
	Line int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// ParseError reports a line that does not match the file format.
type ParseError struct {
	Pos Pos
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// DuplicateKeyError reports the same fully qualified key assigned twice at
// the same namespace level, or two includes mounted under the same alias.
type DuplicateKeyError struct {
	Pos       Pos
	Namespace string
	Key       string
	Prev      Pos
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: duplicate key %q in namespace %q (first assigned at %s)",
		e.Pos, e.Key, e.Namespace, e.Prev)
}

// MissingIncludeError reports an include directive whose target cannot be
// located.
type MissingIncludeError struct {
	Pos  Pos
	Path string
	Err  error
}

func (e *MissingIncludeError) Error() string {
	return fmt.Sprintf("%s: include %q not found: %v", e.Pos, e.Path, e.Err)
}

func (e *MissingIncludeError) Unwrap() error {
	return e.Err
}

// CircularIncludeError reports an include graph that revisits a file already
// on the current resolution stack.
type CircularIncludeError struct {
	Pos   Pos
	Path  string
	Stack []string
}

func (e *CircularIncludeError) Error() string {
	return fmt.Sprintf("%s: circular include of %q (stack: %s)",
		e.Pos, e.Path, strings.Join(e.Stack, " -> "))
}
