// Package mask implements the Mask Engine described in spec.md §4.8: it
// combines repository, profile, user, keyword, and license mask sources
// into a single Reasons bitset for a candidate PackageID.
package mask

import (
	"strings"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/match"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/pkgid"
)

// Reasons is the union of mask sources that forbid a candidate, per
// spec.md §4.8. It is a bitset, not a single enum, because more than one
// source can independently mask the same id.
type Reasons uint8

// The mask sources spec.md §4.8 enumerates.
const (
	Keyword Reasons = 1 << iota
	Profile
	Repository
	User
	License
	EAPI
	ByAssociation
)

var reasonNames = []struct {
	bit  Reasons
	name string
}{
	{Keyword, "keyword"},
	{Profile, "profile"},
	{Repository, "repository"},
	{User, "user"},
	{License, "license"},
	{EAPI, "eapi"},
	{ByAssociation, "by_association"},
}

// Empty reports whether no mask source applies — spec.md §8 invariant 6:
// mask_reasons(id).empty() ⇔ the NotMasked query admits id.
func (r Reasons) Empty() bool { return r == 0 }

// Has reports whether source bit is set in r.
func (r Reasons) Has(bit Reasons) bool { return r&bit != 0 }

// Strings renders r as the list of source names set, used by the
// resolver's AllMasked error to cite per-candidate reasons (spec.md §8
// scenario (e), §7).
func (r Reasons) Strings() []string {
	var out []string
	for _, rn := range reasonNames {
		if r.Has(rn.bit) {
			out = append(out, rn.name)
		}
	}
	return out
}

func (r Reasons) String() string {
	if r.Empty() {
		return "not masked"
	}
	return strings.Join(r.Strings(), ",")
}

// Sources bundles every input the Mask Engine needs to compute Reasons for
// one candidate, per spec.md §4.8's seven bullet sources. It is a plain
// struct, not an *env.Environment, so pkg/mask never needs to import
// pkg/env; env.Environment builds one of these per lookup instead.
type Sources struct {
	// AcceptedKeywords are the architectures (plus any explicit per-package
	// unmask) this environment accepts unstable-or-stable.
	AcceptedKeywords map[string]bool

	// ProfileMask/ProfileUnmask are the active profile's package.mask
	// chain and any downstream package.unmask entries that reverse it.
	ProfileMask   []*depspec.PackageDepSpec
	ProfileUnmask []*depspec.PackageDepSpec

	// RepositoryMasked reports the repository source directly (spec.md
	// §4.8's "id matches a pattern in the repository's own profiles/
	// package.mask"). It is a function rather than a pattern list because
	// a Repository (pkg/repo) already answers this as a capability method
	// (RepositoryMasked) that can return an error pkg/mask has no business
	// swallowing; the caller (env/resolver) adapts it here.
	RepositoryMasked func(id *pkgid.ID) bool

	// UserMask/UserUnmask are the user's package.mask/package.unmask lists.
	UserMask   []*depspec.PackageDepSpec
	UserUnmask []*depspec.PackageDepSpec

	// AcceptedLicenses is the set of license identifiers the environment
	// accepts unconditionally.
	AcceptedLicenses map[string]bool

	// KnownDialects are the recognized, non-forbidden EAPI/dialect tags.
	KnownDialects map[string]bool

	// UseState resolves USE flag state for the candidate, needed to reduce
	// its LICENSE tree before checking accepted licenses.
	UseState match.UseStateFunc

	// VirtualTargetMasked, when non-nil, reports whether id is an
	// uninstallable virtual whose resolution target is itself masked
	// (spec.md §4.8's by_association source).
	VirtualTargetMasked func(id *pkgid.ID) bool
}

// Candidate is the subset of a PackageID's metadata the engine consults.
type Candidate struct {
	ID        *pkgid.ID
	Keywords  []name.KeywordName
	License   depspec.Node
	EAPI      string
	IsVirtual bool
}

// Compute combines every mask source in src against c, returning their
// union per spec.md §4.8.
func Compute(c Candidate, src Sources) Reasons {
	var r Reasons

	if !keywordAccepted(c.Keywords, src.AcceptedKeywords) {
		r |= Keyword
	}

	if matchesMask(c.ID, src.ProfileMask) && !matchesMask(c.ID, src.ProfileUnmask) {
		r |= Profile
	}

	if src.RepositoryMasked != nil && src.RepositoryMasked(c.ID) {
		r |= Repository
	}

	if matchesMask(c.ID, src.UserMask) && !matchesMask(c.ID, src.UserUnmask) {
		r |= User
	}

	if !licenseAccepted(c, src) {
		r |= License
	}

	if src.KnownDialects != nil && !src.KnownDialects[c.EAPI] {
		r |= EAPI
	}

	if c.IsVirtual && src.VirtualTargetMasked != nil && src.VirtualTargetMasked(c.ID) {
		r |= ByAssociation
	}

	return r
}

// keywordAccepted reports whether any of id's KEYWORDS is in accepted, per
// spec.md §4.8: masked when "no accepted keyword in id's KEYWORDS".
func keywordAccepted(keywords []name.KeywordName, accepted map[string]bool) bool {
	if len(accepted) == 0 {
		return len(keywords) == 0
	}
	for _, k := range keywords {
		if accepted[k.Arch()] {
			return true
		}
	}
	return false
}

func matchesMask(id *pkgid.ID, patterns []*depspec.PackageDepSpec) bool {
	for _, p := range patterns {
		if match.MatchPackage(p, id, nil, nil, nil) {
			return true
		}
	}
	return false
}

// licenseVisitor walks a LICENSE tree honoring Conditional gates (a flag
// whose state is unspecified counts as not enabled) and collects every
// reachable License leaf's text.
type licenseVisitor struct {
	depspec.NoopVisitor
	useState func(name.UseFlagName) name.UseState
	licenses []string
}

func (v *licenseVisitor) VisitConditional(n *depspec.Conditional) (bool, error) {
	state := v.useState(n.Flag)
	blocked := (state == name.UseEnabled) == n.Inverted
	return !blocked, nil
}

func (v *licenseVisitor) VisitLicense(n *depspec.License) error {
	v.licenses = append(v.licenses, n.Text)
	return nil
}

// licenseAccepted reduces c's LICENSE tree under the candidate's USE state
// and checks every reachable license name against src.AcceptedLicenses, per
// spec.md §4.8's "id's LICENSE tree, reduced under current USE, contains a
// license not in the accepted set" rule — absence of an accepted-licenses
// set means nothing is filtered.
func licenseAccepted(c Candidate, src Sources) bool {
	if src.AcceptedLicenses == nil {
		return true
	}
	if c.License == nil {
		return true
	}
	useState := func(name.UseFlagName) name.UseState { return name.UseUnspecified }
	if src.UseState != nil {
		useState = func(f name.UseFlagName) name.UseState { return src.UseState(f, c.ID) }
	}
	v := &licenseVisitor{useState: useState}
	depspec.Walk(c.License, v)
	for _, lic := range v.licenses {
		if !src.AcceptedLicenses[lic] {
			return false
		}
	}
	return true
}
