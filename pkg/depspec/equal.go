package depspec

import "reflect"

// Equal reports whether a and b are structurally identical, including the
// order of children (spec.md §4.2: "normalization is not performed at parse
// time"). Tag fields on PackageDepSpec are provenance, not matching data,
// but they are still compared here since Equal is a structural identity
// check over the whole tree, not a semantic-equivalence check.
func Equal(a, b Node) bool {
	return reflect.DeepEqual(a, b)
}
