// Package depspec implements the tagged-variant DepSpec tree described in
// spec.md §3/§4.2: the recursive structure dependency expressions (DEPEND,
// RDEPEND, LICENSE, SRC_URI, ...) are parsed into.
package depspec

import "github.com/crucible-pm/crucible/pkg/name"

// Node is any element of a DepSpec tree. The set of implementations is
// closed; Walk performs an exhaustive type switch over it rather than using
// virtual dispatch, per spec.md §9's direction to prefer tagged-variant
// matching. A new node kind added without updating Walk still compiles;
// Walk returns an error when it meets one.
type Node interface {
	isNode()
}

// AllOf requires all of its children to be satisfied. It is the implicit
// root of any DepSpec tree.
type AllOf struct {
	Children []Node
}

func (*AllOf) isNode() {}

// AnyOf requires at least one child to be satisfied ("|| ( ... )").
//
// Invariant (spec.md §3 #2): every child must be a PackageDepSpec, an AllOf
// of PackageDepSpecs, or a Conditional wrapping the same — never a bare
// AnyOf.
type AnyOf struct {
	Children []Node
}

func (*AnyOf) isNode() {}

// Conditional gates its children on a USE flag's state ("flag? ( ... )" or
// "!flag? ( ... )"). Conditionals may nest to any depth; the effective
// condition is the conjunction along the path from the root.
type Conditional struct {
	Flag     name.UseFlagName
	Inverted bool
	Children []Node
}

func (*Conditional) isNode() {}

// Labels is a metadata annotation (e.g. "build:", "run:") that changes how
// its following siblings, within the same AllOf scope, are classified by
// the resolver (spec.md §3 #4).
type Labels struct {
	Values []string
}

func (*Labels) isNode() {}

// VersionOp is a PackageDepSpec version-comparison operator.
type VersionOp int

// The version operators named in spec.md §4.3.
const (
	OpNone VersionOp = iota
	OpEqual
	OpLessEqual
	OpLess
	OpGreaterEqual
	OpGreater
	OpTilde    // same version, ignoring revision
	OpEqualStar // version prefix wildcard, "=...*"
	OpTildeGreater // bounded bump wildcard, "~>" (extended dialects)
)

func (op VersionOp) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpLessEqual:
		return "<="
	case OpLess:
		return "<"
	case OpGreaterEqual:
		return ">="
	case OpGreater:
		return ">"
	case OpTilde:
		return "~"
	case OpEqualStar:
		return "=*"
	case OpTildeGreater:
		return "~>"
	default:
		return ""
	}
}

// VersionRequirement is one element of a PackageDepSpec's extended
// version_requirements list (spec.md §3, extended dialects only).
type VersionRequirement struct {
	Op      VersionOp
	Version name.VersionSpec
}

// Join is the connective joining a PackageDepSpec's VersionRequirements list.
type Join int

// The two supported connectives.
const (
	JoinAnd Join = iota
	JoinOr
)

// UseReqKind is the kind of a single USE requirement inside a
// PackageDepSpec's "[...]" block.
type UseReqKind int

// The four USE-requirement forms spec.md §4.3 names.
const (
	// UseReqEnabled is the bare "flag" form: the flag must be enabled.
	UseReqEnabled UseReqKind = iota
	// UseReqDisabled is the "-flag" form: the flag must be disabled.
	UseReqDisabled
	// UseReqEqual is the "flag=" form: the dependency's flag state must
	// equal the depending package's state for the same flag.
	UseReqEqual
	// UseReqIfParentEnabled is the "flag?" form: the requirement applies
	// only if the depending package has the flag enabled.
	UseReqIfParentEnabled
)

// UseRequirement is a single element of a PackageDepSpec's use_requirements
// set.
type UseRequirement struct {
	Flag    name.UseFlagName
	Negated bool // "!flag" / "!flag=" / "!flag?" forms
	Kind    UseReqKind
}

// PackageDepSpec is a qualified-name-or-wildcard constraint against
// candidate packages, per spec.md §3.
type PackageDepSpec struct {
	// Category and Package are nil for a wildcard ("*") in that position.
	Category *name.CategoryName
	Package  *name.PackageName

	VersionOp VersionOp
	Version   name.VersionSpec

	// VersionRequirements holds an extended-dialect multi-requirement list,
	// joined by RequirementJoin. Empty unless the dialect supports it.
	VersionRequirements []VersionRequirement
	RequirementJoin     Join

	Slot       *name.SlotName
	Repository *name.RepositoryName

	UseRequirements []UseRequirement

	// Tag is opaque resolver-attached provenance; it plays no part in
	// matching (spec.md §3).
	Tag interface{}
}

func (*PackageDepSpec) isNode() {}

// BlockStrength distinguishes a weak block (satisfiable if the blocker is
// itself being removed by the same plan) from a strong block (always
// fatal).
type BlockStrength int

// The two block strengths, spec.md §4.3 ("!atom" vs "!!atom").
const (
	BlockWeak BlockStrength = iota
	BlockStrong
)

// BlockDepSpec asserts that its Inner spec must NOT be installed (spec.md
// §3 invariant #1: it always wraps exactly one PackageDepSpec).
type BlockDepSpec struct {
	Inner    *PackageDepSpec
	Strength BlockStrength
}

func (*BlockDepSpec) isNode() {}

// PlainText is a leaf string for non-package contexts with no further
// structure.
type PlainText struct {
	Text string
}

func (*PlainText) isNode() {}

// License is a leaf string naming a license, as found in a LICENSE tree.
type License struct {
	Text string
}

func (*License) isNode() {}

// SimpleURI is a leaf URI with no local renaming, as found in a SRC_URI
// tree.
type SimpleURI struct {
	URI string
}

func (*SimpleURI) isNode() {}

// FetchableURI is a SRC_URI leaf that may rename the fetched file
// ("lhs -> rhs"), extended dialects only. RHS is empty when absent.
type FetchableURI struct {
	LHS string
	RHS string
}

func (*FetchableURI) isNode() {}

// NamedSet references a package set to be expanded by the environment
// (e.g. a user-defined or system set).
type NamedSet struct {
	Name name.SetName
}

func (*NamedSet) isNode() {}
