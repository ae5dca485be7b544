package mask

import (
	"testing"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/pkgid"
)

func testID(ver string) *pkgid.ID {
	qpn := name.QualifiedPackageName{Category: name.MustCategoryName("dev-libs"), Package: name.MustPackageName("foo")}
	return pkgid.New(qpn, name.MustParseVersionSpec(ver), name.MustRepositoryName("gentoo"))
}

func TestComputeEmptyWhenNoSourceApplies(t *testing.T) {
	id := testID("1.0")
	c := Candidate{ID: id, Keywords: []name.KeywordName{"amd64"}, EAPI: "pms-0"}
	src := Sources{
		AcceptedKeywords: map[string]bool{"amd64": true},
		KnownDialects:    map[string]bool{"pms-0": true},
	}
	r := Compute(c, src)
	if !r.Empty() {
		t.Fatalf("expected no mask reasons, got %v", r.Strings())
	}
}

func TestKeywordMask(t *testing.T) {
	id := testID("1.0")
	c := Candidate{ID: id, Keywords: []name.KeywordName{"~x86"}}
	src := Sources{AcceptedKeywords: map[string]bool{"amd64": true}}
	r := Compute(c, src)
	if !r.Has(Keyword) {
		t.Fatalf("expected Keyword mask, got %v", r.Strings())
	}
}

func TestUserMaskAndUnmask(t *testing.T) {
	id := testID("1.0")
	c := Candidate{ID: id}
	pattern := &depspec.PackageDepSpec{
		Category: &id.Name.Category,
		Package:  &id.Name.Package,
	}
	src := Sources{UserMask: []*depspec.PackageDepSpec{pattern}}
	r := Compute(c, src)
	if !r.Has(User) {
		t.Fatalf("expected User mask")
	}

	src.UserUnmask = []*depspec.PackageDepSpec{pattern}
	r = Compute(c, src)
	if r.Has(User) {
		t.Fatalf("expected User unmask to cancel the mask")
	}
}

func TestRepositoryMaskedCallback(t *testing.T) {
	id := testID("1.0")
	c := Candidate{ID: id}
	src := Sources{RepositoryMasked: func(*pkgid.ID) bool { return true }}
	r := Compute(c, src)
	if !r.Has(Repository) {
		t.Fatalf("expected Repository mask")
	}
}

func TestLicenseMask(t *testing.T) {
	id := testID("1.0")
	tree := &depspec.AllOf{Children: []depspec.Node{
		&depspec.License{Text: "GPL-2"},
		&depspec.License{Text: "nonfree"},
	}}
	c := Candidate{ID: id, License: tree}
	src := Sources{AcceptedLicenses: map[string]bool{"GPL-2": true}}
	r := Compute(c, src)
	if !r.Has(License) {
		t.Fatalf("expected License mask for unaccepted license")
	}
}

func TestLicenseMaskRespectsConditional(t *testing.T) {
	id := testID("1.0")
	flag := name.MustUseFlagName("nonfree")
	tree := &depspec.AllOf{Children: []depspec.Node{
		&depspec.License{Text: "GPL-2"},
		&depspec.Conditional{Flag: flag, Children: []depspec.Node{
			&depspec.License{Text: "nonfree-license"},
		}},
	}}
	c := Candidate{ID: id, License: tree}
	src := Sources{
		AcceptedLicenses: map[string]bool{"GPL-2": true},
		UseState:         func(name.UseFlagName, *pkgid.ID) name.UseState { return name.UseDisabled },
	}
	r := Compute(c, src)
	if r.Has(License) {
		t.Fatalf("expected the disabled-flag conditional license to be skipped, got %v", r.Strings())
	}
}

func TestEAPIMask(t *testing.T) {
	id := testID("1.0")
	c := Candidate{ID: id, EAPI: "future-eapi"}
	src := Sources{KnownDialects: map[string]bool{"pms-0": true}}
	r := Compute(c, src)
	if !r.Has(EAPI) {
		t.Fatalf("expected EAPI mask for unknown dialect")
	}
}

func TestByAssociationMask(t *testing.T) {
	id := testID("1.0")
	c := Candidate{ID: id, IsVirtual: true}
	src := Sources{VirtualTargetMasked: func(*pkgid.ID) bool { return true }}
	r := Compute(c, src)
	if !r.Has(ByAssociation) {
		t.Fatalf("expected ByAssociation mask")
	}
}
