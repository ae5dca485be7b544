package resolve

import (
	"fmt"
	"strings"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/mask"
	"github.com/crucible-pm/crucible/pkg/pkgid"
)

// MaskedCandidate pairs a candidate that matched a spec's name/version/
// slot/repository/USE constraints with why it was nonetheless rejected.
type MaskedCandidate struct {
	ID      *pkgid.ID
	Reasons mask.Reasons
}

// AllMasked reports that spec.md §7's AllMasked: every candidate
// matching spec was masked (or none existed at all).
type AllMasked struct {
	Spec       *depspec.PackageDepSpec
	Candidates []MaskedCandidate
}

func (e *AllMasked) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("resolve: no candidates match %s", printSpec(e.Spec))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "resolve: all candidates for %s are masked:", printSpec(e.Spec))
	for _, c := range e.Candidates {
		fmt.Fprintf(&b, " %s (%s)", c.ID, c.Reasons)
	}
	return b.String()
}

// UnresolvedAnyOf specializes spec.md §7's generic "resolution error" for
// spec.md §4.9 step 2: every alternative in an AnyOf ("|| ( ... )") was
// rejected. Not a named variant in spec.md §7's taxonomy — the spec leaves
// the AnyOf failure mode as "a resolution error" without naming a type; this
// is the concrete shape chosen for it (DESIGN.md open question).
type UnresolvedAnyOf struct {
	Alternatives []depspec.Node
	Reasons      []error
}

func (e *UnresolvedAnyOf) Error() string {
	return fmt.Sprintf("resolve: no alternative among %d in || ( ... ) could be satisfied", len(e.Alternatives))
}

// CircularDependency reports spec.md §7's CircularDependency: an ordering
// cycle in the arrow graph survived cycle-breaking (spec.md §4.9 step 5,
// §9's Tarjan SCC note).
type CircularDependency struct {
	Cycle []*pkgid.ID
}

func (e *CircularDependency) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		parts[i] = id.String()
	}
	return "resolve: circular dependency: " + strings.Join(parts, " -> ")
}

// BlockError reports spec.md §7's BlockError: a BlockDepSpec (spec.md §4.9
// step 7) was violated.
type BlockError struct {
	Blocker *depspec.PackageDepSpec
	Blocked *pkgid.ID
	Strong  bool
}

func (e *BlockError) Error() string {
	kind := "weak"
	if e.Strong {
		kind = "strong"
	}
	return fmt.Sprintf("resolve: %s block %s conflicts with %s", kind, printSpec(e.Blocker), e.Blocked)
}

// DowngradeNotAllowed reports spec.md §7's DowngradeNotAllowed.
type DowngradeNotAllowed struct {
	From *pkgid.ID
	To   *pkgid.ID
}

func (e *DowngradeNotAllowed) Error() string {
	return fmt.Sprintf("resolve: downgrade from %s to %s not allowed", e.From, e.To)
}

// NoDestination reports spec.md §7's NoDestination: a chosen candidate has
// no repository willing to receive it (spec.md §4.6's "default
// destinations" are all declined or absent).
type NoDestination struct {
	ID *pkgid.ID
}

func (e *NoDestination) Error() string {
	return fmt.Sprintf("resolve: no destination repository for %s", e.ID)
}

func printSpec(spec *depspec.PackageDepSpec) string {
	if spec == nil {
		return "<nil>"
	}
	return depspec.Print(&depspec.AllOf{Children: []depspec.Node{spec}}, depspec.DialectExheres0)
}
