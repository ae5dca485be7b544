package resolve

import (
	"context"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/env"
	"github.com/crucible-pm/crucible/pkg/match"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/pkgid"
	"github.com/crucible-pm/crucible/pkg/repo"
)

// candidate is one PackageID considered for a PackageDepSpec, alongside the
// repository-priority and installed-ness facts spec.md §4.9 step 3's
// preference order needs.
type candidate struct {
	ID        *pkgid.ID
	Slot      name.SlotName
	Repo      repo.Repository
	RepoPrio  int
	Installed bool
}

// qualifiedNamesMatching enumerates every QualifiedPackageName a (possibly
// wildcard) spec could name within r, per spec.md §4.7's wildcard-category/
// package support.
func qualifiedNamesMatching(ctx context.Context, r repo.Repository, spec *depspec.PackageDepSpec) ([]name.QualifiedPackageName, error) {
	if spec.Category != nil && spec.Package != nil {
		return []name.QualifiedPackageName{{Category: *spec.Category, Package: *spec.Package}}, nil
	}
	var out []name.QualifiedPackageName
	cats := []name.CategoryName{}
	if spec.Category != nil {
		cats = append(cats, *spec.Category)
	} else {
		all, err := r.CategoryNames(ctx)
		if err != nil {
			return nil, err
		}
		cats = all
	}
	for _, cat := range cats {
		qpns, err := r.PackageNames(ctx, cat)
		if err != nil {
			return nil, err
		}
		for _, qpn := range qpns {
			if spec.Package == nil || qpn.Package == *spec.Package {
				out = append(out, qpn)
			}
		}
	}
	return out, nil
}

// gatherCandidates collects every matching-and-unmasked PackageID for spec
// across e's repositories (favourite first), per spec.md §4.9 step 3, plus
// every matching-but-masked one (for AllMasked's diagnostic). parent is the
// *pkgid.ID of the depending package, used to evaluate "flag=" / "flag?"
// use_requirements; it may be nil for a top-level target.
func gatherCandidates(ctx context.Context, e *env.Environment, spec *depspec.PackageDepSpec, parent *pkgid.ID) ([]candidate, []MaskedCandidate, error) {
	var cands []candidate
	var masked []MaskedCandidate

	useStateOf := match.UseStateFunc(e.UseState)
	var parentUse match.UseStateFunc
	if parent != nil {
		parentUse = func(flag name.UseFlagName, _ *pkgid.ID) name.UseState {
			return e.UseState(flag, parent)
		}
	}
	slotOf := match.SlotFunc(e.Slot)

	for prio, r := range e.Repositories() {
		qpns, err := qualifiedNamesMatching(ctx, r, spec)
		if err != nil {
			return nil, nil, err
		}
		if spec.Category != nil && spec.Package != nil {
			own, err := r.PackageIDs(ctx, qpns[0])
			if err != nil {
				return nil, nil, err
			}
			if len(own) == 0 {
				if sub, ok, verr := virtualCandidates(ctx, e, r, spec, prio); verr != nil {
					return nil, nil, verr
				} else if ok {
					cands = append(cands, sub...)
					continue
				}
			}
		}
		for _, qpn := range qpns {
			ids, err := r.PackageIDs(ctx, qpn)
			if err != nil {
				return nil, nil, err
			}
			for _, id := range ids {
				if !match.MatchPackage(spec, id, slotOf, useStateOf, parentUse) {
					continue
				}
				reasons, err := e.MaskReasons(ctx, id)
				if err != nil {
					return nil, nil, err
				}
				if !reasons.Empty() {
					masked = append(masked, MaskedCandidate{ID: id, Reasons: reasons})
					continue
				}
				slot, err := e.Slot(id)
				if err != nil {
					return nil, nil, err
				}
				cands = append(cands, candidate{
					ID:        id,
					Slot:      slot,
					Repo:      r,
					RepoPrio:  prio,
					Installed: r.Capabilities()&repo.CapInstalled != 0,
				})
			}
		}
	}
	return cands, masked, nil
}

// virtualCandidates implements the by_association half of spec.md §4.8 and
// the "virtual" Repository surface of §4.5: when spec names a qualified
// package with no concrete package_ids of its own, but r.Virtuals() maps it
// to a target spec, candidates are gathered for the target instead. This
// function only resolves candidates: the substitution is not marked on the
// committed entry, which gets the target's ID and Kind KindPackage.
func virtualCandidates(ctx context.Context, e *env.Environment, r repo.Repository, spec *depspec.PackageDepSpec, prio int) ([]candidate, bool, error) {
	virtuals, err := r.Virtuals(ctx)
	if err != nil {
		return nil, false, err
	}
	qpn := name.QualifiedPackageName{Category: *spec.Category, Package: *spec.Package}
	target, ok := virtuals[qpn]
	if !ok {
		return nil, false, nil
	}
	merged := mergeVirtualSpec(spec, target)
	cands, _, err := gatherCandidates(ctx, e, merged, nil)
	return cands, true, err
}

// mergeVirtualSpec carries version/slot/use constraints from the original
// (virtual) spec onto the virtual's resolution target, when the target
// itself left them unconstrained.
func mergeVirtualSpec(orig, target *depspec.PackageDepSpec) *depspec.PackageDepSpec {
	merged := depspec.Clone(target).(*depspec.PackageDepSpec)
	if merged.VersionOp == depspec.OpNone && orig.VersionOp != depspec.OpNone {
		merged.VersionOp = orig.VersionOp
		merged.Version = orig.Version
	}
	if merged.Slot == nil {
		merged.Slot = orig.Slot
	}
	if len(merged.UseRequirements) == 0 {
		merged.UseRequirements = orig.UseRequirements
	}
	return merged
}

// bestPerSlot ranks cands per spec.md §4.9 step 3's preference order
// (installed in that slot > not masked in favourite repo > highest
// version; tie-break by repository priority) and returns the single best
// candidate for each distinct slot, slots in first-seen order.
func bestPerSlot(cands []candidate) []candidate {
	order := []name.SlotName{}
	bySlot := map[name.SlotName]candidate{}
	for _, c := range cands {
		cur, ok := bySlot[c.Slot]
		if !ok {
			bySlot[c.Slot] = c
			order = append(order, c.Slot)
			continue
		}
		if better(c, cur) {
			bySlot[c.Slot] = c
		}
	}
	out := make([]candidate, 0, len(order))
	for _, s := range order {
		out = append(out, bySlot[s])
	}
	return out
}

// better reports whether a outranks b under spec.md §4.9 step 3's
// preference order.
func better(a, b candidate) bool {
	if a.Installed != b.Installed {
		return a.Installed
	}
	if (a.RepoPrio == 0) != (b.RepoPrio == 0) {
		return a.RepoPrio == 0
	}
	if c := name.Compare(a.ID.Version, b.ID.Version); c != 0 {
		return c > 0
	}
	return a.RepoPrio < b.RepoPrio
}

// overallBest picks the single best candidate across every slot, used for
// TargetSlotsBest.
func overallBest(cands []candidate) candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		if better(c, best) {
			best = c
		}
	}
	return best
}

// selectCandidates applies Options.TargetSlots to cands, per spec.md §4.9's
// target_slots = {best, all, installed}.
func selectCandidates(cands []candidate, opts Options) []candidate {
	if len(cands) == 0 {
		return nil
	}
	switch opts.TargetSlots {
	case TargetSlotsAll:
		return bestPerSlot(cands)
	case TargetSlotsInstalled:
		var installed []candidate
		for _, c := range cands {
			if c.Installed {
				installed = append(installed, c)
			}
		}
		return bestPerSlot(installed)
	default:
		return []candidate{overallBest(bestPerSlot(cands))}
	}
}

// classify implements spec.md §4.9 step 6: compare chosen against the
// installed candidates in the same qualified name, tagging new/new_slot/
// upgrade/downgrade/rebuild. It does not affect the algorithm, only the
// surfaced classification.
func classify(chosen candidate, installedInSlot, installedElsewhere []candidate) Classification {
	if len(installedInSlot) == 0 {
		if len(installedElsewhere) == 0 {
			return ClassNew
		}
		return ClassNewSlot
	}
	cur := installedInSlot[0]
	switch cmp := name.Compare(chosen.ID.Version, cur.ID.Version); {
	case cmp > 0:
		return ClassUpgrade
	case cmp < 0:
		return ClassDowngrade
	default:
		return ClassRebuild
	}
}

// installedMatching returns every installed candidate (across every
// CapInstalled repository) whose qualified name equals qpn, split into
// those sharing chosenSlot and those in a different slot.
func installedMatching(ctx context.Context, e *env.Environment, qpn name.QualifiedPackageName, chosenSlot name.SlotName) (inSlot, elsewhere []candidate, err error) {
	for prio, r := range e.Repositories() {
		if r.Capabilities()&repo.CapInstalled == 0 {
			continue
		}
		ids, ierr := r.PackageIDs(ctx, qpn)
		if ierr != nil {
			return nil, nil, ierr
		}
		for _, id := range ids {
			slot, serr := e.Slot(id)
			if serr != nil {
				return nil, nil, serr
			}
			c := candidate{ID: id, Slot: slot, Repo: r, RepoPrio: prio, Installed: true}
			if slot == chosenSlot {
				inSlot = append(inSlot, c)
			} else {
				elsewhere = append(elsewhere, c)
			}
		}
	}
	return inSlot, elsewhere, nil
}

// gatherCandidatesIgnoringUse re-gathers spec's candidates with its
// use_requirements relaxed (version/slot/name/repository constraints still
// apply). Used only when Options.AutoEnableUseFlags opts a caller into
// treating an otherwise-masked-by-USE candidate as installable, per
// spec.md §9's Open Question #2 resolution: auto-enable is never silent, it
// must be asked for. The requirements are only ignored: no flag state is
// changed or recorded on the resulting entry.
func gatherCandidatesIgnoringUse(ctx context.Context, e *env.Environment, spec *depspec.PackageDepSpec, parent *pkgid.ID) ([]candidate, []MaskedCandidate, error) {
	relaxed := depspec.Clone(spec).(*depspec.PackageDepSpec)
	relaxed.UseRequirements = nil
	return gatherCandidates(ctx, e, relaxed, parent)
}
