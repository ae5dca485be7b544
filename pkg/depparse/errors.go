// Package depparse implements the DepSpec parser and printer driver
// described in spec.md §4.3: it tokenizes a recipe string and builds a
// depspec.Node tree from it, or fails with a located DepSpecParseError.
package depparse

import "fmt"

// DepSpecParseError reports a parse failure at a token offset.
type DepSpecParseError struct {
	Location int // token index, 0-based
	Reason   string
}

func (e *DepSpecParseError) Error() string {
	return fmt.Sprintf("depparse: token %d: %s", e.Location, e.Reason)
}

// PackageDepSpecError reports a structurally invalid compound atom — one
// that tokenizes fine but whose body doesn't parse into a consistent
// category/package/version/slot/repository/use-requirement shape.
type PackageDepSpecError struct {
	Atom   string
	Reason string
}

func (e *PackageDepSpecError) Error() string {
	return fmt.Sprintf("depparse: invalid atom %q: %s", e.Atom, e.Reason)
}
