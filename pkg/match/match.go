// Package match implements Match & Query (spec.md §4.7): the decision of
// whether a concrete PackageID satisfies a PackageDepSpec, and a composable
// Query predicate type used to scan a repository's ID enumeration.
package match

import (
	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/pkgid"
)

// UseStateFunc reports the tri-state value a USE flag holds for id. Match
// takes this as a parameter rather than an *env.Environment so that this
// package never needs to import env — spec.md §4.7's match_package(env,
// spec, id) is realized here as match_package(spec, id, useStateOf), with
// the environment supplying useStateOf at the call site.
type UseStateFunc func(flag name.UseFlagName, id *pkgid.ID) name.UseState

// SlotFunc resolves id's SLOT metadata key. SLOT is lazily loaded metadata
// (pkg/pkgid), not a field on the bare ID handle, so MatchPackage asks for
// it through a function rather than assuming it has already been fetched.
type SlotFunc func(id *pkgid.ID) (name.SlotName, error)

// MatchPackage reports whether id satisfies spec, per spec.md §4.7: a
// conjunction of name, version, slot, repository and USE-requirement
// checks. slotOf resolves id's SLOT; candidateUse resolves USE state for id
// itself; parentUse (may be nil) resolves USE state for the package that
// depends on id, needed only for the "flag=" / "flag?" use_requirements
// forms. slotOf may be nil if spec is known to carry no slot constraint.
func MatchPackage(spec *depspec.PackageDepSpec, id *pkgid.ID, slotOf SlotFunc, candidateUse, parentUse UseStateFunc) bool {
	if !matchName(spec, id) {
		return false
	}
	if !matchVersion(spec, id) {
		return false
	}
	if spec.Slot != nil {
		if slotOf == nil {
			return false
		}
		slot, err := slotOf(id)
		if err != nil || slot != *spec.Slot {
			return false
		}
	}
	if spec.Repository != nil && id.Repository != *spec.Repository {
		return false
	}
	for _, req := range spec.UseRequirements {
		if !matchUseRequirement(req, id, candidateUse, parentUse) {
			return false
		}
	}
	return true
}

func matchName(spec *depspec.PackageDepSpec, id *pkgid.ID) bool {
	if spec.Category != nil && *spec.Category != id.Name.Category {
		return false
	}
	if spec.Package != nil && *spec.Package != id.Name.Package {
		return false
	}
	return true
}

func matchVersion(spec *depspec.PackageDepSpec, id *pkgid.ID) bool {
	if len(spec.VersionRequirements) > 0 {
		return matchVersionRequirements(spec, id)
	}
	return matchOneVersion(spec.VersionOp, spec.Version, id.Version)
}

func matchVersionRequirements(spec *depspec.PackageDepSpec, id *pkgid.ID) bool {
	if spec.RequirementJoin == depspec.JoinOr {
		for _, r := range spec.VersionRequirements {
			if matchOneVersion(r.Op, r.Version, id.Version) {
				return true
			}
		}
		return len(spec.VersionRequirements) == 0
	}
	for _, r := range spec.VersionRequirements {
		if !matchOneVersion(r.Op, r.Version, id.Version) {
			return false
		}
	}
	return true
}

// matchOneVersion implements spec.md §4.7 point 2's per-operator semantics.
func matchOneVersion(op depspec.VersionOp, ruleVersion, candidate name.VersionSpec) bool {
	switch op {
	case depspec.OpNone:
		return true
	case depspec.OpEqual:
		return candidate.Equal(ruleVersion)
	case depspec.OpLessEqual:
		return name.Compare(candidate, ruleVersion) <= 0
	case depspec.OpLess:
		return name.Compare(candidate, ruleVersion) < 0
	case depspec.OpGreaterEqual:
		return name.Compare(candidate, ruleVersion) >= 0
	case depspec.OpGreater:
		return name.Compare(candidate, ruleVersion) > 0
	case depspec.OpTilde:
		return candidate.IgnoringRevisionEqual(ruleVersion)
	case depspec.OpEqualStar:
		return candidate.HasPrefix(ruleVersion)
	case depspec.OpTildeGreater:
		upper := ruleVersion.Bump()
		return name.Compare(candidate, ruleVersion) >= 0 && name.Compare(candidate, upper) < 0
	default:
		return false
	}
}

func matchUseRequirement(req depspec.UseRequirement, id *pkgid.ID, candidateUse, parentUse UseStateFunc) bool {
	state := name.UseUnspecified
	if candidateUse != nil {
		state = candidateUse(req.Flag, id)
	}

	switch req.Kind {
	case depspec.UseReqEnabled:
		ok := state == name.UseEnabled
		if req.Negated {
			return !ok
		}
		return ok
	case depspec.UseReqDisabled:
		// "-flag" is its own negative; there is no further !-negation of it.
		return state == name.UseDisabled
	case depspec.UseReqIfParentEnabled:
		if parentUse == nil {
			// No parent context to evaluate against: the conditional term
			// is vacuously satisfied, mirroring how a bare Conditional with
			// an unresolvable flag is treated permissively elsewhere.
			return true
		}
		// parentUse is keyed by flag only in this reduced model; id is
		// irrelevant to it, but the signature is shared with candidateUse
		// for symmetry.
		parentState := parentUse(req.Flag, id)
		parentEnabled := parentState == name.UseEnabled
		if req.Negated {
			parentEnabled = !parentEnabled
		}
		if !parentEnabled {
			return true
		}
		return state == name.UseEnabled
	case depspec.UseReqEqual:
		if parentUse == nil {
			return false
		}
		parentState := parentUse(req.Flag, id)
		eq := state == parentState && state != name.UseUnspecified
		if req.Negated {
			return !eq
		}
		return eq
	default:
		return false
	}
}

