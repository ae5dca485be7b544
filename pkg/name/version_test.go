package name

import (
	"sort"
	"testing"
)

func TestVersionSpecOrdering(t *testing.T) {
	// spec.md §8 scenario (a).
	in := []string{
		"2.0-scm", "1.1_pre", "1.0", "1.1_alpha1", "1.1",
		"1.0.1", "1.1_alpha", "1.0-r1",
	}
	want := []string{
		"1.0", "1.0-r1", "1.0.1", "1.1_alpha", "1.1_alpha1",
		"1.1_pre", "1.1", "2.0-scm",
	}

	vs := make([]VersionSpec, len(in))
	for i, s := range in {
		vs[i] = MustParseVersionSpec(s)
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })

	for i, v := range vs {
		if v.String() != want[i] {
			t.Fatalf("position %d: got %q, want %q (full order: %v)", i, v.String(), want[i], vs)
		}
	}
}

func TestVersionSpecTotalOrder(t *testing.T) {
	pairs := [][2]string{
		{"1.0", "1.0"},
		{"1.0", "1.0.1"},
		{"1.2a", "1.2"},
		{"1.2a", "1.3"},
		{"1.02", "1.1"},
		{"1.10", "1.9"},
	}
	for _, p := range pairs {
		a, b := MustParseVersionSpec(p[0]), MustParseVersionSpec(p[1])
		lt, eq, gt := a.Less(b), a.Equal(b), b.Less(a)
		n := 0
		if lt {
			n++
		}
		if eq {
			n++
		}
		if gt {
			n++
		}
		if n != 1 {
			t.Errorf("%s vs %s: exactly one of <,==,> must hold, got lt=%v eq=%v gt=%v", p[0], p[1], lt, eq, gt)
		}
	}
}

func TestVersionSpecLeadingZeroFractional(t *testing.T) {
	a := MustParseVersionSpec("1.02")
	b := MustParseVersionSpec("1.1")
	if !a.Less(b) {
		t.Fatalf("expected 1.02 < 1.1 under fractional compare")
	}
}

func TestVersionSpecLetterAttachment(t *testing.T) {
	a := MustParseVersionSpec("1.2a")
	b := MustParseVersionSpec("1.2")
	c := MustParseVersionSpec("1.3")
	if !b.Less(a) {
		t.Fatalf("expected 1.2 < 1.2a")
	}
	if !a.Less(c) {
		t.Fatalf("expected 1.2a < 1.3")
	}
}

func TestVersionSpecRevision(t *testing.T) {
	a := MustParseVersionSpec("1.0-r1")
	b := MustParseVersionSpec("1.0-r2")
	if !a.Less(b) {
		t.Fatalf("expected 1.0-r1 < 1.0-r2")
	}
	if !a.IgnoringRevisionEqual(MustParseVersionSpec("1.0")) {
		t.Fatalf("expected 1.0-r1 ~ 1.0 ignoring revision")
	}
}

func TestVersionSpecBump(t *testing.T) {
	v := MustParseVersionSpec("1.2.3")
	got := v.Bump().String()
	if got != "1.3" {
		t.Fatalf("Bump(1.2.3) = %q, want 1.3", got)
	}

	v2 := MustParseVersionSpec("1")
	if got := v2.Bump().String(); got != "2" {
		t.Fatalf("Bump(1) = %q, want 2", got)
	}
}

func TestVersionSpecPrefixWildcard(t *testing.T) {
	v := MustParseVersionSpec("1.2.3")
	prefix := MustParseVersionSpec("1.2")
	if !v.HasPrefix(prefix) {
		t.Fatalf("expected 1.2.3 to have prefix 1.2")
	}
	other := MustParseVersionSpec("1.3")
	if v.HasPrefix(other) {
		t.Fatalf("did not expect 1.2.3 to have prefix 1.3")
	}
}

func TestParseVersionSpecInvalid(t *testing.T) {
	for _, bad := range []string{"", "abc", "1.", ".1", "1..2"} {
		if _, err := ParseVersionSpec(bad); err == nil {
			t.Errorf("expected error parsing %q", bad)
		}
	}
}
