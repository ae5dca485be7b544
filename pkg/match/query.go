package match

import (
	"sort"

	"github.com/armon/go-radix"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/pkgid"
	"github.com/crucible-pm/crucible/pkg/repo"
)

// Candidate bundles an ID with the repository it came from, the minimum a
// Query needs to evaluate repository-scoped predicates (capabilities, slot
// lookup) without every combinator threading its own extra arguments.
type Candidate struct {
	ID   *pkgid.ID
	Repo repo.Repository
}

// Query is a composable predicate over Candidates, per spec.md §4.7: "a
// composable predicate over repositories' ID enumerations". Combinators are
// ordinary functions returning a Query, so callers build a conjunction with
// And(...).
type Query func(Candidate) bool

// And conjoins queries; an empty And always matches.
func And(qs ...Query) Query {
	return func(c Candidate) bool {
		for _, q := range qs {
			if !q(c) {
				return false
			}
		}
		return true
	}
}

// Matches builds a Query for "id satisfies spec", the spec.md §4.7
// match_package check. slotOf/candidateUse/parentUse are threaded straight
// through to MatchPackage.
func Matches(spec *depspec.PackageDepSpec, slotOf SlotFunc, candidateUse, parentUse UseStateFunc) Query {
	return func(c Candidate) bool {
		return MatchPackage(spec, c.ID, slotOf, candidateUse, parentUse)
	}
}

// Package builds a Query matching exactly the given qualified name,
// regardless of version/slot/repository/USE.
func Package(qpn name.QualifiedPackageName) Query {
	return func(c Candidate) bool {
		return c.ID.Name == qpn
	}
}

// NotMasked builds a Query from a caller-supplied isMasked predicate.
// Match itself has no notion of mask.Reasons (pkg/mask instead depends on
// pkg/match, to test package.mask-style patterns) — the environment or
// resolver adapts !mask.Reasons.Empty() into this bool at the call site, per
// spec.md §8 invariant 6 (mask_reasons(id).empty() ⇔ NotMasked admits id).
func NotMasked(isMasked func(*pkgid.ID) bool) Query {
	return func(c Candidate) bool {
		return !isMasked(c.ID)
	}
}

// SupportsInstalled builds a Query requiring the candidate's repository to
// advertise repo.CapInstalled (spec.md §4.7's "SupportsAction<Installed>").
func SupportsInstalled() Query {
	return func(c Candidate) bool {
		return c.Repo != nil && c.Repo.Capabilities()&repo.CapInstalled != 0
	}
}

// RepositoryHasCapability builds a Query requiring the candidate's
// repository to advertise cap — the general form of spec.md §4.7's
// "RepositoryHasInstalledInterface" example.
func RepositoryHasCapability(capFlag repo.Capability) Query {
	return func(c Candidate) bool {
		return c.Repo != nil && c.Repo.Capabilities()&capFlag != 0
	}
}

// Index is the radix-indexed primary lookup structure spec.md §4.7
// describes: "the database evaluates a query by picking the narrowest
// primary index ... and scanning candidate IDs in ascending version order".
// An Index covers one repository. Nothing builds or rebuilds one
// automatically: after the repository is invalidated (spec.md §4.5), its
// owner calls Rebuild.
type Index struct {
	repo repo.Repository
	tree *radix.Tree
}

// NewIndex builds an Index over every (category/package) key in repo's
// enumeration, each mapping to its PackageIDs in ascending version order.
func NewIndex(r repo.Repository, ids map[name.QualifiedPackageName][]*pkgid.ID) *Index {
	t := radix.New()
	for qpn, list := range ids {
		sorted := make([]*pkgid.ID, len(list))
		copy(sorted, list)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
		t.Insert(qpn.String(), sorted)
	}
	return &Index{repo: r, tree: t}
}

// candidateKeyHint, when it reports true, gives the single qualified-name key a Query
// constrains its search to — narrowing Scan from "every package in the
// repository" to "one radix lookup", per spec.md §4.7.
func candidateKeyHint(spec *depspec.PackageDepSpec, qpn *name.QualifiedPackageName) (string, bool) {
	if qpn != nil {
		return qpn.String(), true
	}
	if spec != nil && spec.Category != nil && spec.Package != nil {
		return (name.QualifiedPackageName{Category: *spec.Category, Package: *spec.Package}).String(), true
	}
	return "", false
}

// Scan evaluates q over the index: when the caller can supply a single
// qualified-name hint (via key), the radix tree resolves it directly;
// otherwise Scan walks every key, which is the full-repository-scan
// fallback spec.md §4.7 describes for a wildcard query.
func (ix *Index) Scan(key string, hasKey bool, q Query) []*pkgid.ID {
	var out []*pkgid.ID
	visit := func(s string, v interface{}) bool {
		ids, _ := v.([]*pkgid.ID)
		for _, id := range ids {
			if q(Candidate{ID: id, Repo: ix.repo}) {
				out = append(out, id)
			}
		}
		return false
	}
	if hasKey {
		if v, ok := ix.tree.Get(key); ok {
			visit(key, v)
		}
		return out
	}
	ix.tree.Walk(visit)
	return out
}

// ScanSpec is the common case of Scan: narrow by spec's qualified name when
// it names one concretely, otherwise fall back to a full walk.
func (ix *Index) ScanSpec(spec *depspec.PackageDepSpec, q Query) []*pkgid.ID {
	key, ok := candidateKeyHint(spec, nil)
	return ix.Scan(key, ok, q)
}

// Rebuild replaces ix's contents, the "invalidate and reload cheaply"
// behavior spec.md §4.5 requires of a Repository, applied to its Index.
func (ix *Index) Rebuild(ids map[name.QualifiedPackageName][]*pkgid.ID) {
	rebuilt := NewIndex(ix.repo, ids)
	ix.tree = rebuilt.tree
}
