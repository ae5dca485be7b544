package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
)

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newFixtureRepo(t *testing.T) *FSRepository {
	t.Helper()
	root := t.TempDir()

	mustWrite(t, filepath.Join(root, "profiles", "repo_name"), "gentoo\n")
	mustWrite(t, filepath.Join(root, "profiles", "categories"), "dev-libs\n")
	mustWrite(t, filepath.Join(root, "profiles", "arch.list"), "amd64\nx86\n")
	mustWrite(t, filepath.Join(root, "profiles", "package.mask"), "# comment\ndev-libs/bad\n")
	mustWrite(t, filepath.Join(root, "profiles", "thirdpartymirrors"), "gentoo http://a.example http://b.example\n")

	mustWrite(t, filepath.Join(root, "dev-libs", "foo", "foo-1.0.ebuild"), "")
	mustWrite(t, filepath.Join(root, "dev-libs", "foo", "foo-1.2.ebuild"), "")
	mustWrite(t, filepath.Join(root, "dev-libs", "bad", "bad-1.0.ebuild"), "")

	return NewFSRepository(root, depspec.DialectPMS0, CapInstallable, nil)
}

func TestFSRepositoryLoadsProfilesAndTree(t *testing.T) {
	r := newFixtureRepo(t)
	ctx := context.Background()

	cats, err := r.CategoryNames(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || cats[0].String() != "dev-libs" {
		t.Fatalf("expected [dev-libs], got %v", cats)
	}

	if r.Name().String() != "gentoo" {
		t.Fatalf("expected repo_name gentoo, got %s", r.Name())
	}

	ids, err := r.PackageIDs(ctx, qpn("dev-libs", "foo"))
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 versions of dev-libs/foo, got %d", len(ids))
	}
	if ids[0].Version.String() != "1.0" || ids[1].Version.String() != "1.2" {
		t.Fatalf("expected ascending [1.0, 1.2], got %v", ids)
	}

	mirrors, err := r.Mirrors(ctx, "gentoo")
	if err != nil {
		t.Fatal(err)
	}
	if len(mirrors) != 2 {
		t.Fatalf("expected 2 mirror URLs, got %v", mirrors)
	}
}

func TestFSRepositoryPackageMask(t *testing.T) {
	r := newFixtureRepo(t)
	ctx := context.Background()

	ids, err := r.PackageIDs(ctx, qpn("dev-libs", "bad"))
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected dev-libs/bad to have one version, got %d", len(ids))
	}

	masked, err := r.RepositoryMasked(ctx, ids[0])
	if err != nil {
		t.Fatal(err)
	}
	if !masked {
		t.Error("expected dev-libs/bad to be repository-masked")
	}

	patterns, err := r.PackageMaskPatterns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(patterns) != 1 {
		t.Fatalf("expected exactly one package.mask pattern, got %d", len(patterns))
	}
}

func TestFSRepositoryIsArchFlag(t *testing.T) {
	r := newFixtureRepo(t)
	if _, err := r.CategoryNames(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !r.IsArchFlag(name.MustUseFlagName("amd64")) {
		t.Error("expected amd64 to be a known arch flag")
	}
	if r.IsArchFlag(name.MustUseFlagName("ssl")) {
		t.Error("expected ssl not to be an arch flag")
	}
}

func TestFSRepositoryInvalidateForcesReload(t *testing.T) {
	r := newFixtureRepo(t)
	ctx := context.Background()

	if _, err := r.PackageIDs(ctx, qpn("dev-libs", "foo")); err != nil {
		t.Fatal(err)
	}

	mustWrite(t, filepath.Join(r.root, "dev-libs", "foo", "foo-2.0.ebuild"), "")
	r.Invalidate()

	ids, err := r.PackageIDs(ctx, qpn("dev-libs", "foo"))
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected reload to pick up the new version, got %d entries", len(ids))
	}
}
