package depspec

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/crucible-pm/crucible/pkg/name"
)

func pkg(cat, pn string) *PackageDepSpec {
	c := name.MustCategoryName(cat)
	p := name.MustPackageName(pn)
	return &PackageDepSpec{Category: &c, Package: &p}
}

func sampleTree() *AllOf {
	return &AllOf{Children: []Node{
		pkg("dev-libs", "foo"),
		&Conditional{
			Flag: name.MustUseFlagName("ssl"),
			Children: []Node{
				pkg("dev-libs", "openssl"),
			},
		},
		&AnyOf{Children: []Node{
			pkg("dev-lang", "python"),
			pkg("dev-lang", "python3"),
		}},
	}}
}

// recordingVisitor records the order in which leaves are visited.
type recordingVisitor struct {
	NoopVisitor
	order []string
}

func (r *recordingVisitor) VisitPackage(p *PackageDepSpec) error {
	r.order = append(r.order, p.Category.String()+"/"+p.Package.String())
	return nil
}

func TestWalkOrderIsStableLeftToRight(t *testing.T) {
	tree := sampleTree()
	rv := &recordingVisitor{}
	if err := Walk(tree, rv); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{"dev-libs/foo", "dev-libs/openssl", "dev-lang/python", "dev-lang/python3"}
	if len(rv.order) != len(want) {
		t.Fatalf("got %v, want %v", rv.order, want)
	}
	for i, w := range want {
		if rv.order[i] != w {
			t.Errorf("position %d: got %q, want %q", i, rv.order[i], w)
		}
	}
}

func TestWalkDescendFalseSkipsChildren(t *testing.T) {
	tree := sampleTree()
	var visited bool
	err := Walk(tree, stopAtFirstContainer{&visited})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if visited {
		t.Errorf("expected no package visits once the root AllOf declines to descend")
	}
}

type stopAtFirstContainer struct {
	visited *bool
}

func (stopAtFirstContainer) VisitAllOf(*AllOf) (bool, error)             { return false, nil }
func (stopAtFirstContainer) VisitAnyOf(*AnyOf) (bool, error)             { return true, nil }
func (stopAtFirstContainer) VisitConditional(*Conditional) (bool, error) { return true, nil }
func (stopAtFirstContainer) VisitLabels(*Labels) (bool, error)           { return true, nil }
func (s stopAtFirstContainer) VisitPackage(*PackageDepSpec) error        { *s.visited = true; return nil }
func (stopAtFirstContainer) VisitBlock(*BlockDepSpec) error              { return nil }
func (stopAtFirstContainer) VisitPlainText(*PlainText) error            { return nil }
func (stopAtFirstContainer) VisitLicense(*License) error                { return nil }
func (stopAtFirstContainer) VisitURI(*SimpleURI) error                  { return nil }
func (stopAtFirstContainer) VisitFetchableURI(*FetchableURI) error      { return nil }
func (stopAtFirstContainer) VisitNamedSet(*NamedSet) error              { return nil }

func TestCloneProducesEqualButDistinctTree(t *testing.T) {
	tree := sampleTree()
	clone := Clone(tree)
	if !Equal(tree, clone) {
		t.Fatalf("clone is not structurally equal to original")
	}
	// Mutating the clone's first leaf must not affect the original.
	cloneRoot := clone.(*AllOf)
	leaf := cloneRoot.Children[0].(*PackageDepSpec)
	newCat := name.MustCategoryName("sys-libs")
	leaf.Category = &newCat
	if Equal(tree, clone) {
		t.Fatalf("mutating clone leaked into original")
	}
	origLeaf := tree.Children[0].(*PackageDepSpec)
	if origLeaf.Category.String() != "dev-libs" {
		t.Fatalf("original mutated: got %q", origLeaf.Category.String())
	}
}

func TestEqualIsOrderSensitive(t *testing.T) {
	a := &AllOf{Children: []Node{pkg("dev-libs", "foo"), pkg("dev-libs", "bar")}}
	b := &AllOf{Children: []Node{pkg("dev-libs", "bar"), pkg("dev-libs", "foo")}}
	if Equal(a, b) {
		t.Fatalf("reordered children compared equal")
	}
}

// TestCloneMatchesOriginalByDiff uses cmp.Diff rather than Equal so a
// regression reports which field/child diverges instead of a bare bool,
// exercising cmp.AllowUnexported for VersionSpec's unexported fields.
func TestCloneMatchesOriginalByDiff(t *testing.T) {
	tree := sampleTree()
	clone := Clone(tree)
	if diff := cmp.Diff(tree, clone,
		cmp.AllowUnexported(name.VersionSpec{}),
	); diff != "" {
		t.Fatalf("clone diverges from original (-tree +clone):\n%s", diff)
	}
}

func TestFlattenDropsDisabledConditional(t *testing.T) {
	tree := sampleTree()
	always := func(name.UseFlagName) name.UseState { return name.UseDisabled }
	out := Flatten(tree, always)
	for _, n := range out {
		p, ok := n.(*PackageDepSpec)
		if ok && p.Package.String() == "openssl" {
			t.Fatalf("openssl leaf survived a disabled ssl flag")
		}
	}
}

func TestFlattenKeepsEnabledConditional(t *testing.T) {
	tree := sampleTree()
	always := func(name.UseFlagName) name.UseState { return name.UseEnabled }
	out := Flatten(tree, always)
	found := false
	for _, n := range out {
		if p, ok := n.(*PackageDepSpec); ok && p.Package.String() == "openssl" {
			found = true
		}
	}
	if !found {
		t.Fatalf("openssl leaf dropped despite an enabled ssl flag")
	}
}

func TestPrintPackageDepSpecRoundTripsThroughSameShape(t *testing.T) {
	p := pkg("dev-libs", "foo")
	slot := name.MustSlotName("0")
	p.Slot = &slot
	got := Print(p, DialectPMS0)
	want := "dev-libs/foo:0"
	if got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}

func TestPrintVersionedPackageDepSpec(t *testing.T) {
	p := pkg("dev-libs", "foo")
	p.VersionOp = OpGreaterEqual
	p.Version = name.MustParseVersionSpec("1.2.3")
	got := Print(p, DialectPMS0)
	want := ">=dev-libs/foo-1.2.3"
	if got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}

func TestPrintBlockDepSpec(t *testing.T) {
	b := &BlockDepSpec{Inner: pkg("dev-libs", "foo"), Strength: BlockStrong}
	got := Print(b, DialectPMS0)
	want := "!!dev-libs/foo"
	if got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}
