package repo

import (
	"context"
	"testing"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/pkgid"
)

func qpn(cat, pkg string) name.QualifiedPackageName {
	return name.QualifiedPackageName{Category: name.MustCategoryName(cat), Package: name.MustPackageName(pkg)}
}

func TestMemRepositoryAddOrdersVersionsAscending(t *testing.T) {
	r := NewMemRepository(name.MustRepositoryName("gentoo"), CapInstallable)
	q := qpn("dev-libs", "foo")

	r.Add(q, &MemPackage{Version: name.MustParseVersionSpec("2.0")})
	r.Add(q, &MemPackage{Version: name.MustParseVersionSpec("1.0")})
	r.Add(q, &MemPackage{Version: name.MustParseVersionSpec("1.5")})

	ids, err := r.PackageIDs(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	want := []string{"1.0", "1.5", "2.0"}
	for i, id := range ids {
		if id.Version.String() != want[i] {
			t.Errorf("position %d: got %s, want %s", i, id.Version, want[i])
		}
	}
}

func TestMemRepositoryRepositoryMasked(t *testing.T) {
	r := NewMemRepository(name.MustRepositoryName("gentoo"), CapInstallable)
	q := qpn("dev-libs", "foo")
	id := r.Add(q, &MemPackage{Version: name.MustParseVersionSpec("1.0"), Masked: true})

	masked, err := r.RepositoryMasked(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if !masked {
		t.Error("expected entry marked Masked to report RepositoryMasked true")
	}
}

func TestMemRepositoryQueryUseDefault(t *testing.T) {
	r := NewMemRepository(name.MustRepositoryName("gentoo"), CapInstallable)
	q := qpn("dev-libs", "foo")
	flag := name.MustUseFlagName("ssl")
	id := r.Add(q, &MemPackage{
		Version: name.MustParseVersionSpec("1.0"),
		IUse:    []pkgid.IUseFlag{{Flag: flag, Default: name.UseEnabled}},
	})

	state, err := r.QueryUse(context.Background(), flag, id)
	if err != nil {
		t.Fatal(err)
	}
	if state != name.UseEnabled {
		t.Errorf("expected default-enabled ssl, got %v", state)
	}

	other := name.MustUseFlagName("nonexistent")
	state, err = r.QueryUse(context.Background(), other, id)
	if err != nil {
		t.Fatal(err)
	}
	if state != name.UseUnspecified {
		t.Errorf("expected unspecified for flag absent from IUSE, got %v", state)
	}
}

func TestMemRepositoryVirtuals(t *testing.T) {
	r := NewMemRepository(name.MustRepositoryName("gentoo"), CapInstallable)
	target := qpn("dev-libs", "openssl")
	v := qpn("virtual", "ssl")
	r.AddVirtual(v, &depspec.PackageDepSpec{Category: &target.Category, Package: &target.Package})

	virtuals, err := r.Virtuals(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := virtuals[v]; !ok {
		t.Fatalf("expected virtual/ssl registered, got %v", virtuals)
	}
}
