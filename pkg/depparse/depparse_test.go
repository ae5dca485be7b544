package depparse

import (
	"testing"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
)

func TestParseSimpleAllOf(t *testing.T) {
	n, err := Parse("dev-libs/foo >=dev-lang/python-3.6", LeafPackage, depspec.DialectPMS0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	all, ok := n.(*depspec.AllOf)
	if !ok || len(all.Children) != 2 {
		t.Fatalf("got %#v, want AllOf with 2 children", n)
	}
	p0 := all.Children[0].(*depspec.PackageDepSpec)
	if p0.Category.String() != "dev-libs" || p0.Package.String() != "foo" {
		t.Errorf("child 0 = %+v", p0)
	}
	p1 := all.Children[1].(*depspec.PackageDepSpec)
	if p1.VersionOp != depspec.OpGreaterEqual || p1.Version.String() != "3.6" {
		t.Errorf("child 1 = %+v", p1)
	}
}

func TestParseAnyOfGroup(t *testing.T) {
	n, err := Parse("|| ( dev-lang/python dev-lang/python3 )", LeafPackage, depspec.DialectPMS0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	all := n.(*depspec.AllOf)
	if len(all.Children) != 1 {
		t.Fatalf("want one top-level child, got %d", len(all.Children))
	}
	any, ok := all.Children[0].(*depspec.AnyOf)
	if !ok || len(any.Children) != 2 {
		t.Fatalf("got %#v, want AnyOf with 2 children", all.Children[0])
	}
}

func TestParseConditional(t *testing.T) {
	n, err := Parse("ssl? ( dev-libs/openssl ) !static? ( dev-libs/bar )", LeafPackage, depspec.DialectPMS0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	all := n.(*depspec.AllOf)
	if len(all.Children) != 2 {
		t.Fatalf("want 2 children, got %d", len(all.Children))
	}
	c0 := all.Children[0].(*depspec.Conditional)
	if c0.Flag.String() != "ssl" || c0.Inverted {
		t.Errorf("c0 = %+v", c0)
	}
	c1 := all.Children[1].(*depspec.Conditional)
	if c1.Flag.String() != "static" || !c1.Inverted {
		t.Errorf("c1 = %+v", c1)
	}
}

func TestParseBlock(t *testing.T) {
	n, err := Parse("!!dev-libs/foo", LeafPackage, depspec.DialectPMS0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	all := n.(*depspec.AllOf)
	b := all.Children[0].(*depspec.BlockDepSpec)
	if b.Strength != depspec.BlockStrong {
		t.Errorf("expected a strong block")
	}
	if b.Inner.Package.String() != "foo" {
		t.Errorf("inner = %+v", b.Inner)
	}
}

func TestParseUnbalancedParens(t *testing.T) {
	if _, err := Parse("( dev-libs/foo", LeafPackage, depspec.DialectPMS0); err == nil {
		t.Fatalf("expected an error for a missing ')'")
	}
	if _, err := Parse("dev-libs/foo )", LeafPackage, depspec.DialectPMS0); err == nil {
		t.Fatalf("expected an error for a stray ')'")
	}
}

func TestParseAnyOfWithoutParenFails(t *testing.T) {
	if _, err := Parse("|| dev-libs/foo", LeafPackage, depspec.DialectPMS0); err == nil {
		t.Fatalf("expected an error: '||' not followed by '('")
	}
}

func TestParseUseRequirements(t *testing.T) {
	n, err := Parse("dev-libs/foo[ssl,-doc,python_targets_python3=]", LeafPackage, depspec.DialectPaludis1)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p := n.(*depspec.AllOf).Children[0].(*depspec.PackageDepSpec)
	if len(p.UseRequirements) != 3 {
		t.Fatalf("got %d use requirements, want 3: %+v", len(p.UseRequirements), p.UseRequirements)
	}
	if p.UseRequirements[0].Kind != depspec.UseReqEnabled || p.UseRequirements[0].Flag.String() != "ssl" {
		t.Errorf("req0 = %+v", p.UseRequirements[0])
	}
	if p.UseRequirements[1].Kind != depspec.UseReqDisabled || p.UseRequirements[1].Flag.String() != "doc" {
		t.Errorf("req1 = %+v", p.UseRequirements[1])
	}
	if p.UseRequirements[2].Kind != depspec.UseReqEqual {
		t.Errorf("req2 = %+v", p.UseRequirements[2])
	}
}

func TestParseFetchableURIRename(t *testing.T) {
	n, err := Parse("http://example.org/foo.tar.gz -> foo-1.0.tar.gz", LeafURI, depspec.DialectExheres0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f := n.(*depspec.AllOf).Children[0].(*depspec.FetchableURI)
	if f.LHS != "http://example.org/foo.tar.gz" || f.RHS != "foo-1.0.tar.gz" {
		t.Errorf("got %+v", f)
	}
}

func TestParseFetchableURIRenameRejectedByDialect(t *testing.T) {
	if _, err := Parse("http://example.org/foo.tar.gz -> foo-1.0.tar.gz", LeafURI, depspec.DialectPMS0); err == nil {
		t.Fatalf("expected an error: PMS-0 does not allow renamed fetchables")
	}
}

func TestParseLicenseLeaves(t *testing.T) {
	n, err := Parse("GPL-2 || ( MIT BSD )", LeafLicense, depspec.DialectPMS0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	all := n.(*depspec.AllOf)
	lic := all.Children[0].(*depspec.License)
	if lic.Text != "GPL-2" {
		t.Errorf("got %q", lic.Text)
	}
	any := all.Children[1].(*depspec.AnyOf)
	if len(any.Children) != 2 {
		t.Fatalf("got %d children", len(any.Children))
	}
}

func TestRoundTripThroughPrinter(t *testing.T) {
	cases := []struct {
		name    string
		recipe  string
		leaf    LeafKind
		dialect depspec.Dialect
	}{
		{"allof", "dev-libs/foo >=dev-lang/python-3.6", LeafPackage, depspec.DialectPMS0},
		{"anyof", "|| ( dev-lang/python dev-lang/python3 )", LeafPackage, depspec.DialectPMS0},
		{"conditional", "ssl? ( dev-libs/openssl )", LeafPackage, depspec.DialectPMS0},
		{"strong-block", "!!dev-libs/foo", LeafPackage, depspec.DialectPMS0},
		{"slot-and-repo", "dev-libs/foo:0::gentoo", LeafPackage, depspec.DialectPMS0},
		{"use-reqs", "dev-libs/foo[ssl,-doc]", LeafPackage, depspec.DialectPaludis1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tree, err := Parse(c.recipe, c.leaf, c.dialect)
			if err != nil {
				t.Fatalf("Parse(%q): %v", c.recipe, err)
			}
			printed := depspec.Print(tree, c.dialect)
			reparsed, err := Parse(printed, c.leaf, c.dialect)
			if err != nil {
				t.Fatalf("Parse(Print(...)) = %q: %v", printed, err)
			}
			if !depspec.Equal(tree, reparsed) {
				t.Errorf("round trip mismatch: original parse %#v, printed %q, reparsed %#v", tree, printed, reparsed)
			}
		})
	}
}

func TestNamedSetLeaf(t *testing.T) {
	n, err := Parse("@system", LeafPackage, depspec.DialectPMS0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ns := n.(*depspec.AllOf).Children[0].(*depspec.NamedSet)
	if ns.Name != name.MustSetName("system") {
		t.Errorf("got %+v", ns)
	}
}
