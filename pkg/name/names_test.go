package name

import "testing"

func TestNewCategoryName(t *testing.T) {
	good := []string{"dev-lang", "app-misc", "x11-libs", "sys-kernel"}
	for _, s := range good {
		if _, err := NewCategoryName(s); err != nil {
			t.Errorf("NewCategoryName(%q) = %v, want success", s, err)
		}
	}

	bad := []string{"", "-dev-lang", "dev lang"}
	for _, s := range bad {
		if _, err := NewCategoryName(s); err == nil {
			t.Errorf("NewCategoryName(%q) succeeded, want error", s)
		}
	}
}

func TestNewPackageName(t *testing.T) {
	if _, err := NewPackageName("gcc"); err != nil {
		t.Errorf("NewPackageName(gcc) = %v", err)
	}
	if _, err := NewPackageName("foo-1.2"); err == nil {
		t.Errorf("NewPackageName(foo-1.2) should fail: looks like a version tail")
	}
}

func TestQualifiedPackageNameOrdering(t *testing.T) {
	a := QualifiedPackageName{Category: MustCategoryName("app-a"), Package: MustPackageName("x")}
	b := QualifiedPackageName{Category: MustCategoryName("app-b"), Package: MustPackageName("y")}
	if !a.Less(b) {
		t.Fatalf("expected app-a/x < app-b/y")
	}
	if a.String() != "app-a/x" {
		t.Fatalf("String() = %q", a.String())
	}
}

func TestKeywordName(t *testing.T) {
	k, err := NewKeywordName("~amd64")
	if err != nil {
		t.Fatal(err)
	}
	if !k.Unstable() {
		t.Errorf("expected ~amd64 to be unstable")
	}
	if k.Arch() != "amd64" {
		t.Errorf("Arch() = %q, want amd64", k.Arch())
	}
}
