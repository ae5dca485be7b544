package resolve

import (
	"context"

	"github.com/pkg/errors"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/env"
	"github.com/crucible-pm/crucible/pkg/match"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/pkgid"
)

// Resolver turns a set of Targets into a DepList, mirroring the teacher's
// Solver interface: an opaque handle produced by a constructor, exposing a
// single entry-point method.
type Resolver interface {
	Resolve(ctx context.Context, targets ...Target) (*DepList, error)
}

// resolver is the concrete, unexported Resolver implementation.
type resolver struct {
	env  *env.Environment
	opts Options
}

// New prepares a Resolver bound to e under opts.
func New(e *env.Environment, opts Options) Resolver {
	return &resolver{env: e, opts: opts}
}

func (r *resolver) Resolve(ctx context.Context, targets ...Target) (*DepList, error) {
	s := &resolverState{
		env:       r.env,
		opts:      r.opts,
		committed: map[name.QualifiedPackageName]*DepListEntry{},
	}
	for _, t := range targets {
		if t.Set != "" {
			node, err := r.env.Sets().Resolve(t.Set)
			if err != nil {
				return nil, errors.Wrapf(err, "resolve: expanding set %s", t.Set)
			}
			tagFor := func(spec *depspec.PackageDepSpec) interface{} { return SetDepTag{Set: t.Set} }
			if err := s.walk(ctx, node, nil, arrowDepend, tagFor); err != nil {
				return nil, err
			}
			continue
		}
		if err := s.resolveTargetSpec(ctx, t.Spec); err != nil {
			return nil, err
		}
	}
	return s.finalize()
}

// rawArrow is an ordering edge recorded before entry indices are known;
// finalize() translates these into an arrowGraph once every entry has been
// committed.
type rawArrow struct {
	before, after *pkgid.ID
	kind          arrowKind
}

// resolverState is the mutable working set threaded through one Resolve
// call: the arena of committed entries (spec.md §9), a lookup from
// qualified name to its committed entry (diamond-dependency and cycle
// protection), and the raw ordering arrows collected along the way.
type resolverState struct {
	env  *env.Environment
	opts Options

	entries   []*DepListEntry
	committed map[name.QualifiedPackageName]*DepListEntry
	commitLog []name.QualifiedPackageName
	arrows    []rawArrow
}

type checkpoint struct{ entries, arrows, commits int }

func (s *resolverState) snapshot() checkpoint {
	return checkpoint{len(s.entries), len(s.arrows), len(s.commitLog)}
}

// restore undoes every commit made since cp, used to roll back a failed
// AnyOf alternative (spec.md §4.9 step 2) before trying the next one.
func (s *resolverState) restore(cp checkpoint) {
	for i := len(s.commitLog) - 1; i >= cp.commits; i-- {
		delete(s.committed, s.commitLog[i])
	}
	s.commitLog = s.commitLog[:cp.commits]
	s.entries = s.entries[:cp.entries]
	s.arrows = s.arrows[:cp.arrows]
}

// resolveTargetSpec resolves a top-level package target, honoring
// Options.TargetSlots (which may select more than one slot), per spec.md
// §4.9 step 1.
func (s *resolverState) resolveTargetSpec(ctx context.Context, spec *depspec.PackageDepSpec) error {
	cands, masked, err := gatherCandidates(ctx, s.env, spec, nil)
	if err != nil {
		return err
	}
	if len(cands) == 0 && s.opts.AutoEnableUseFlags {
		if cands, masked, err = gatherCandidatesIgnoringUse(ctx, s.env, spec, nil); err != nil {
			return err
		}
	}
	if len(cands) == 0 {
		return &AllMasked{Spec: spec, Candidates: masked}
	}
	for _, c := range selectCandidates(cands, s.opts) {
		if err := s.commitCandidate(ctx, c, spec, nil, arrowDepend, TargetDepTag{}); err != nil {
			return err
		}
	}
	return nil
}

// walk descends a DepSpec tree (a DEPEND/RDEPEND/PDEPEND/SDEPEND metadata
// value, or a named set's expansion), per spec.md §4.9 step 4. parent is
// the *pkgid.ID whose tree this is (nil for a top-level target/set), kind
// is the ordering-arrow strength to record for every PackageDepSpec
// encountered (subject to Labels overriding it for following siblings),
// and tagFor builds the provenance tag to attach to whatever a given
// PackageDepSpec resolves to.
func (s *resolverState) walk(ctx context.Context, node depspec.Node, parent *pkgid.ID, kind arrowKind, tagFor func(*depspec.PackageDepSpec) interface{}) error {
	switch n := node.(type) {
	case *depspec.AllOf:
		current := kind
		for _, c := range n.Children {
			if lbl, ok := c.(*depspec.Labels); ok {
				current = labelKind(lbl, kind)
				continue
			}
			if err := s.walk(ctx, c, parent, current, tagFor); err != nil {
				return err
			}
		}
		return nil

	case *depspec.Conditional:
		if !s.conditionalActive(n, parent) {
			return nil
		}
		for _, c := range n.Children {
			if err := s.walk(ctx, c, parent, kind, tagFor); err != nil {
				return err
			}
		}
		return nil

	case *depspec.AnyOf:
		return s.resolveAnyOf(ctx, n, parent, kind, tagFor)

	case *depspec.PackageDepSpec:
		return s.resolvePackageDepSpec(ctx, n, parent, kind, tagFor(n))

	case *depspec.BlockDepSpec:
		return s.resolveBlock(ctx, n, parent, tagFor)

	case *depspec.NamedSet:
		expanded, err := s.env.Sets().Resolve(n.Name)
		if err != nil {
			return errors.Wrapf(err, "resolve: expanding set %s", n.Name)
		}
		return s.walk(ctx, expanded, parent, kind, func(spec *depspec.PackageDepSpec) interface{} {
			return SetDepTag{Set: n.Name}
		})

	case *depspec.Labels:
		// A stray Labels outside an AllOf scope carries nothing to act on.
		return nil

	default:
		// PlainText/License/SimpleURI/FetchableURI: leaves that never
		// appear in a DEPEND-family tree.
		return nil
	}
}

// labelKind maps a Labels annotation to the arrow strength its following
// siblings should use, per spec.md §3 #4. Unrecognized label text leaves
// the inherited kind unchanged.
func labelKind(lbl *depspec.Labels, inherited arrowKind) arrowKind {
	for _, v := range lbl.Values {
		switch v {
		case "build":
			return arrowDepend
		case "run":
			return arrowRdepend
		case "post":
			return arrowPdepend
		case "suggest", "recommend":
			return arrowSdepend
		}
	}
	return inherited
}

// conditionalActive evaluates a Conditional's gating flag against parent's
// USE state. A nil parent (a top-level target or named-set expansion has
// no owning package to query) is treated permissively, matching how
// match.MatchPackage treats an unavailable parentUse for "flag?" use
// requirements.
func (s *resolverState) conditionalActive(n *depspec.Conditional, parent *pkgid.ID) bool {
	if parent == nil {
		return true
	}
	enabled := s.env.UseState(n.Flag, parent) == name.UseEnabled
	if n.Inverted {
		enabled = !enabled
	}
	return enabled
}

// altSpecs flattens one AnyOf alternative into its constituent
// PackageDepSpecs, per the invariant that an alternative is a
// PackageDepSpec, an AllOf of PackageDepSpecs, or a Conditional wrapping
// either. An inactive Conditional contributes nothing, which
// resolveAnyOf treats as an alternative that is trivially satisfied.
func (s *resolverState) altSpecs(node depspec.Node, parent *pkgid.ID) []*depspec.PackageDepSpec {
	switch n := node.(type) {
	case *depspec.PackageDepSpec:
		return []*depspec.PackageDepSpec{n}
	case *depspec.AllOf:
		var out []*depspec.PackageDepSpec
		for _, c := range n.Children {
			out = append(out, s.altSpecs(c, parent)...)
		}
		return out
	case *depspec.Conditional:
		if !s.conditionalActive(n, parent) {
			return nil
		}
		var out []*depspec.PackageDepSpec
		for _, c := range n.Children {
			out = append(out, s.altSpecs(c, parent)...)
		}
		return out
	default:
		return nil
	}
}

// resolveAnyOf implements spec.md §4.9 step 2: try each alternative in
// order, committing it provisionally; the first alternative whose every
// PackageDepSpec resolves without error wins, and every earlier attempt's
// partial commits are rolled back.
func (s *resolverState) resolveAnyOf(ctx context.Context, n *depspec.AnyOf, parent *pkgid.ID, kind arrowKind, tagFor func(*depspec.PackageDepSpec) interface{}) error {
	var reasons []error
	for _, alt := range n.Children {
		specs := s.altSpecs(alt, parent)
		if len(specs) == 0 {
			// Every constraint in this alternative was gated off: it
			// requires nothing, so it is trivially satisfied.
			return nil
		}
		cp := s.snapshot()
		ok := true
		for _, spec := range specs {
			if err := s.resolvePackageDepSpec(ctx, spec, parent, kind, tagFor(spec)); err != nil {
				reasons = append(reasons, err)
				ok = false
				break
			}
		}
		if ok {
			return nil
		}
		s.restore(cp)
	}
	return &UnresolvedAnyOf{Alternatives: n.Children, Reasons: reasons}
}

// resolvePackageDepSpec resolves one PackageDepSpec against s.env,
// reusing an already-committed entry for the same qualified name when its
// constraints are still compatible (spec.md §4.9 step 2's "already in the
// plan" satisfaction test), otherwise selecting and committing the single
// best matching candidate.
func (s *resolverState) resolvePackageDepSpec(ctx context.Context, spec *depspec.PackageDepSpec, parent *pkgid.ID, kind arrowKind, tag interface{}) error {
	if spec.Category != nil && spec.Package != nil {
		qpn := name.QualifiedPackageName{Category: *spec.Category, Package: *spec.Package}
		if existing, ok := s.committed[qpn]; ok && existing.ID != nil {
			var parentUse match.UseStateFunc
			if parent != nil {
				parentUse = func(flag name.UseFlagName, _ *pkgid.ID) name.UseState { return s.env.UseState(flag, parent) }
			}
			if match.MatchPackage(spec, existing.ID, match.SlotFunc(s.env.Slot), match.UseStateFunc(s.env.UseState), parentUse) {
				existing.addTag(tag)
				s.addArrowRaw(parent, existing.ID, kind)
				return nil
			}
		}
	}

	cands, masked, err := gatherCandidates(ctx, s.env, spec, parent)
	if err != nil {
		return err
	}
	if len(cands) == 0 && s.opts.AutoEnableUseFlags {
		if cands, masked, err = gatherCandidatesIgnoringUse(ctx, s.env, spec, parent); err != nil {
			return err
		}
	}
	if len(cands) == 0 {
		return &AllMasked{Spec: spec, Candidates: masked}
	}
	chosen := overallBest(bestPerSlot(cands))
	return s.commitCandidate(ctx, chosen, spec, parent, kind, tag)
}

// commitCandidate records chosen as a DepListEntry (reusing an existing
// entry if chosen is already committed, the diamond-dependency case),
// records the causing ordering arrow, and — unless chosen is already
// installed — recurses into its own DEPEND/RDEPEND/PDEPEND/SDEPEND trees
// per spec.md §4.9 steps 4-6.
func (s *resolverState) commitCandidate(ctx context.Context, c candidate, spec *depspec.PackageDepSpec, parent *pkgid.ID, kind arrowKind, tag interface{}) error {
	if existing, ok := s.committed[c.ID.Name]; ok && existing.ID != nil && existing.ID.Equal(c.ID) {
		existing.addTag(tag)
		s.addArrowRaw(parent, existing.ID, kind)
		return nil
	}

	inSlot, elsewhere, err := installedMatching(ctx, s.env, c.ID.Name, c.Slot)
	if err != nil {
		return err
	}

	entryKind := KindPackage
	class := classify(c, inSlot, elsewhere)
	if c.Installed {
		if s.opts.Reinstall == ReinstallAlways {
			class = ClassRebuild
		} else {
			entryKind = KindAlreadyInstalled
			class = ClassNone
		}
	}

	entry := &DepListEntry{
		Kind:           entryKind,
		ID:             c.ID,
		Spec:           spec,
		Destination:    c.Repo.Name(),
		Classification: class,
	}
	entry.addTag(tag)
	s.entries = append(s.entries, entry)
	s.committed[c.ID.Name] = entry
	s.commitLog = append(s.commitLog, c.ID.Name)
	s.addArrowRaw(parent, c.ID, kind)

	if entryKind == KindAlreadyInstalled {
		return nil
	}
	return s.recurseInto(ctx, c)
}

// recurseInto walks c's four dependency metadata trees, per spec.md §4.9
// step 4/5.
func (s *resolverState) recurseInto(ctx context.Context, c candidate) error {
	trees := []struct {
		key  pkgid.Key
		kind arrowKind
	}{
		{pkgid.KeyDepend, arrowDepend},
		{pkgid.KeyRdepend, arrowRdepend},
		{pkgid.KeyPdepend, arrowPdepend},
		{pkgid.KeySdepend, arrowSdepend},
	}
	for _, t := range trees {
		md, err := c.Repo.Get(ctx, c.ID, t.key)
		if err != nil {
			return errors.Wrapf(err, "resolve: fetching %s for %s", t.key, c.ID)
		}
		if md.Tree == nil {
			continue
		}
		id := c.ID
		tagFor := func(spec *depspec.PackageDepSpec) interface{} { return DependencyDepTag{Parent: id, Spec: spec} }
		if err := s.walk(ctx, md.Tree, id, t.kind, tagFor); err != nil {
			return err
		}
	}
	return nil
}

// resolveBlock implements spec.md §4.9 step 7: a strong block
// ("!!atom") against any installed match is always fatal; a weak block
// ("!atom") is recorded as an advisory DepListEntry, since this resolver
// plans installs and does not model the corresponding uninstall that
// would normally clear a weak block (DESIGN.md simplification).
func (s *resolverState) resolveBlock(ctx context.Context, n *depspec.BlockDepSpec, parent *pkgid.ID, tagFor func(*depspec.PackageDepSpec) interface{}) error {
	cands, _, err := gatherCandidates(ctx, s.env, n.Inner, parent)
	if err != nil {
		return err
	}
	var blocked *pkgid.ID
	for _, c := range cands {
		if c.Installed {
			blocked = c.ID
			break
		}
	}
	if blocked == nil {
		return nil
	}
	if n.Strength == depspec.BlockStrong {
		return &BlockError{Blocker: n.Inner, Blocked: blocked, Strong: true}
	}
	entry := &DepListEntry{Kind: KindBlock, Spec: n.Inner}
	entry.addTag(tagFor(n.Inner))
	s.entries = append(s.entries, entry)
	return nil
}

// finalize translates the collected raw arrows into an arrowGraph over
// entry indices, breaks cycles, and returns entries in the resulting
// stable order.
func (s *resolverState) finalize() (*DepList, error) {
	n := len(s.entries)
	index := make(map[*pkgid.ID]int, n)
	for i, e := range s.entries {
		if e.ID != nil {
			index[e.ID] = i
		}
	}

	g := newArrowGraph(n)
	for _, a := range s.arrows {
		bi, bok := index[a.before]
		ai, aok := index[a.after]
		if !bok || !aok {
			continue
		}
		g.add(bi, ai, a.kind)
	}

	order, err := g.resolveOrder()
	if err != nil {
		if ci, ok := err.(*cycleIndices); ok {
			cycle := make([]*pkgid.ID, 0, len(ci.indices))
			for _, i := range ci.indices {
				cycle = append(cycle, s.entries[i].ID)
			}
			return nil, &CircularDependency{Cycle: cycle}
		}
		return nil, err
	}

	out := make([]*DepListEntry, n)
	for pos, i := range order {
		out[pos] = s.entries[i]
	}
	return &DepList{Entries: out}, nil
}

// addArrowRaw records the ordering edge a committed dependency imposes
// between itself and parent. PDEPEND's "post-arrow" sense (the dependent
// must be scheduled before its dependency) is expressed by swapping
// before/after here, so every other call site can pass (parent, dep) in
// the same "who depends on whom" order regardless of which metadata key
// produced the arrow.
func (s *resolverState) addArrowRaw(parent, dep *pkgid.ID, kind arrowKind) {
	if parent == nil || dep == nil || parent.Equal(dep) {
		return
	}
	if kind == arrowPdepend {
		s.arrows = append(s.arrows, rawArrow{before: parent, after: dep, kind: kind})
		return
	}
	s.arrows = append(s.arrows, rawArrow{before: dep, after: parent, kind: kind})
}
