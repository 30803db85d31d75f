package resolver

import (
	"fmt"
	"strings"

	"github.com/atrettin/pisa/internal/cfg"
)

// UnresolvedReferenceError reports a `${namespace:key}` token whose target
// does not exist anywhere in the resolved document graph.
type UnresolvedReferenceError struct {
	Ref string  // the reference as written, e.g. "osc:nonexistent"
	Key string  // fully qualified key whose value contains the reference
	Pos cfg.Pos // location of the referencing entry
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s: reference ${%s} in %q does not resolve to any key", e.Pos, e.Ref, e.Key)
}

// CircularReferenceError reports keys whose references form a cycle, so no
// substitution order exists.
type CircularReferenceError struct {
	Keys []string
}

func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("circular reference between %s", strings.Join(e.Keys, ", "))
}
