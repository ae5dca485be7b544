package resolve

import (
	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/pkgid"
)

// Kind is a DepListEntry's role in the plan, per spec.md §4.9's enumeration.
type Kind int

const (
	KindPackage Kind = iota
	KindSubpackage
	KindSuggested
	KindProvided
	KindVirtual
	KindAlreadyInstalled
	KindMasked
	KindBlock
)

func (k Kind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindSubpackage:
		return "subpackage"
	case KindSuggested:
		return "suggested"
	case KindProvided:
		return "provided"
	case KindVirtual:
		return "virtual"
	case KindAlreadyInstalled:
		return "already_installed"
	case KindMasked:
		return "masked"
	case KindBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Classification is the rebuild/upgrade/downgrade accounting spec.md §4.9
// step 6 requires, surfaced to the caller without affecting the algorithm.
type Classification int

const (
	ClassNone Classification = iota
	ClassNew
	ClassNewSlot
	ClassUpgrade
	ClassDowngrade
	ClassRebuild
)

func (c Classification) String() string {
	switch c {
	case ClassNew:
		return "new"
	case ClassNewSlot:
		return "new_slot"
	case ClassUpgrade:
		return "upgrade"
	case ClassDowngrade:
		return "downgrade"
	case ClassRebuild:
		return "rebuild"
	default:
		return ""
	}
}

// TargetDepTag marks an entry as directly named by a caller-supplied
// Target, per spec.md §4.9 step 1.
type TargetDepTag struct{}

// SetDepTag marks an entry as pulled in through a named set's expansion.
type SetDepTag struct {
	Set name.SetName
}

// DependencyDepTag marks an entry as pulled in by recursing into a parent
// package's DEPEND/RDEPEND/PDEPEND/SDEPEND tree, per spec.md §4.9 step 4.
type DependencyDepTag struct {
	Parent *pkgid.ID
	Spec   *depspec.PackageDepSpec
}

// GLSADepTag marks an entry as pulled in to satisfy a security advisory
// constraint (out of scope to define the advisory format; the tag is a
// provenance marker per spec.md §4.9's tag enumeration).
type GLSADepTag struct {
	Advisory string
}

// DepListEntry is one scheduled unit of the install plan, per spec.md
// §4.9.
type DepListEntry struct {
	Kind Kind

	// ID is the chosen candidate. Nil for KindMasked and KindBlock, where
	// Spec names the offending constraint instead.
	ID *pkgid.ID

	// Spec is the causing PackageDepSpec, always set; for KindMasked and
	// KindBlock it is the only identifying information available.
	Spec *depspec.PackageDepSpec

	Destination name.RepositoryName

	Classification Classification

	// Tags records provenance: every constraint that caused this entry's
	// inclusion, per spec.md §4.9 ("tags: provenance for each constraint
	// that caused inclusion").
	Tags []interface{}
}

func (e *DepListEntry) addTag(t interface{}) { e.Tags = append(e.Tags, t) }

// DepList is the resolver's output: an ordered, consistent install plan.
type DepList struct {
	Entries []*DepListEntry
}

// IndexOf returns the position of the entry holding id, or -1.
func (dl *DepList) IndexOf(id *pkgid.ID) int {
	for i, e := range dl.Entries {
		if e.ID != nil && e.ID.Equal(id) {
			return i
		}
	}
	return -1
}

// Find returns the entry holding id, if any.
func (dl *DepList) Find(id *pkgid.ID) *DepListEntry {
	if i := dl.IndexOf(id); i >= 0 {
		return dl.Entries[i]
	}
	return nil
}

// FindQPN returns the first entry for qpn, if any. The resolver itself
// detects "already in the plan" (spec.md §4.9 step 2) through its own
// committed map, not through this method.
func (dl *DepList) FindQPN(qpn name.QualifiedPackageName) *DepListEntry {
	for _, e := range dl.Entries {
		if e.ID != nil && e.ID.Name == qpn {
			return e
		}
	}
	return nil
}
