package resolve

import (
	"context"
	"strings"
	"testing"

	"github.com/crucible-pm/crucible/pkg/depparse"
	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/env"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/pkgid"
	"github.com/crucible-pm/crucible/pkg/repo"
)

func qpn(t *testing.T, s string) name.QualifiedPackageName {
	t.Helper()
	i := strings.IndexByte(s, '/')
	if i < 0 {
		t.Fatalf("qpn: %q has no category", s)
	}
	return name.QualifiedPackageName{
		Category: name.MustCategoryName(s[:i]),
		Package:  name.MustPackageName(s[i+1:]),
	}
}

func tree(t *testing.T, atom string) depspec.Node {
	t.Helper()
	if atom == "" {
		return nil
	}
	n, err := depparse.Parse(atom, depparse.LeafPackage, depspec.DialectPMS0)
	if err != nil {
		t.Fatalf("parse %q: %v", atom, err)
	}
	return n
}

func spec(t *testing.T, atom string) *depspec.PackageDepSpec {
	t.Helper()
	n := tree(t, atom).(*depspec.AllOf)
	if len(n.Children) != 1 {
		t.Fatalf("atom %q is not a single spec", atom)
	}
	return n.Children[0].(*depspec.PackageDepSpec)
}

func testEnv(t *testing.T, repos ...repo.Repository) *env.Environment {
	t.Helper()
	cfg := &env.Config{
		Keywords:     []string{"amd64"},
		Repositories: []env.RepositoryConfig{{Name: "gentoo", Dialect: "pms-0"}},
	}
	e, err := env.New(cfg, repos, func(string) depspec.Dialect { return depspec.DialectPMS0 }, nil)
	if err != nil {
		t.Fatalf("env.New: %v", err)
	}
	return e
}

func add(r *repo.MemRepository, t *testing.T, atom, version string, p *repo.MemPackage) *pkgid.ID {
	t.Helper()
	if p.EAPI == "" {
		p.EAPI = "pms-0"
	}
	if p.Keywords == nil {
		p.Keywords = []name.KeywordName{"amd64"}
	}
	p.Version = name.MustParseVersionSpec(version)
	return r.Add(qpn(t, atom), p)
}

func TestResolveSimpleDependency(t *testing.T) {
	r := repo.NewMemRepository(name.MustRepositoryName("gentoo"), repo.CapInstallable)
	add(r, t, "dev-libs/bar", "1.0", &repo.MemPackage{})
	add(r, t, "app-misc/foo", "1.0", &repo.MemPackage{Depend: tree(t, "dev-libs/bar")})

	e := testEnv(t, r)
	dl, err := New(e, DefaultOptions()).Resolve(context.Background(), PackageTarget(spec(t, "app-misc/foo")))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(dl.Entries) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(dl.Entries), dl.Entries)
	}
	if dl.Entries[0].ID.Name.Package.String() != "bar" {
		t.Errorf("entry 0 = %s, want dev-libs/bar scheduled before its dependent", dl.Entries[0].ID)
	}
	if dl.Entries[1].ID.Name.Package.String() != "foo" {
		t.Errorf("entry 1 = %s, want app-misc/foo last", dl.Entries[1].ID)
	}
}

func TestResolveAnyOfSkipsMaskedAlternative(t *testing.T) {
	r := repo.NewMemRepository(name.MustRepositoryName("gentoo"), repo.CapInstallable)
	add(r, t, "dev-lang/python2", "2.7", &repo.MemPackage{Masked: true})
	add(r, t, "dev-lang/python3", "3.11", &repo.MemPackage{})
	add(r, t, "app-misc/foo", "1.0", &repo.MemPackage{
		Depend: tree(t, "|| ( dev-lang/python2 dev-lang/python3 )"),
	})

	e := testEnv(t, r)
	dl, err := New(e, DefaultOptions()).Resolve(context.Background(), PackageTarget(spec(t, "app-misc/foo")))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if found := dl.FindQPN(qpn(t, "dev-lang/python3")); found == nil {
		t.Fatalf("expected dev-lang/python3 to have been chosen: %+v", dl.Entries)
	}
	if dl.FindQPN(qpn(t, "dev-lang/python2")) != nil {
		t.Errorf("masked alternative dev-lang/python2 should not appear in the plan")
	}
}

func TestResolveAllMaskedWhenEveryCandidateIsMasked(t *testing.T) {
	r := repo.NewMemRepository(name.MustRepositoryName("gentoo"), repo.CapInstallable)
	add(r, t, "app-misc/foo", "1.0", &repo.MemPackage{Masked: true})

	e := testEnv(t, r)
	_, err := New(e, DefaultOptions()).Resolve(context.Background(), PackageTarget(spec(t, "app-misc/foo")))
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var am *AllMasked
	if !errorsAsAllMasked(err, &am) {
		t.Fatalf("got %T: %v, want *AllMasked", err, err)
	}
	if len(am.Candidates) != 1 {
		t.Errorf("got %d masked candidates, want 1", len(am.Candidates))
	}
}

func errorsAsAllMasked(err error, out **AllMasked) bool {
	if am, ok := err.(*AllMasked); ok {
		*out = am
		return true
	}
	return false
}

func TestResolveAlreadyInstalledIsNotReinstalled(t *testing.T) {
	repoBuild := repo.NewMemRepository(name.MustRepositoryName("gentoo"), repo.CapInstallable)
	add(repoBuild, t, "app-misc/foo", "1.0", &repo.MemPackage{})

	repoInstalled := repo.NewMemRepository(name.MustRepositoryName("installed"), repo.CapInstalled)
	add(repoInstalled, t, "app-misc/foo", "1.0", &repo.MemPackage{})

	// Favourite repository is the installed one, so an exact version
	// match there outranks the buildable candidate (spec.md §4.9 step 3).
	e := testEnv(t, repoInstalled, repoBuild)
	dl, err := New(e, DefaultOptions()).Resolve(context.Background(), PackageTarget(spec(t, "app-misc/foo")))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(dl.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(dl.Entries))
	}
	if dl.Entries[0].Kind != KindAlreadyInstalled {
		t.Errorf("got Kind %s, want already_installed", dl.Entries[0].Kind)
	}
}

func TestResolveCircularRdependDoesNotError(t *testing.T) {
	r := repo.NewMemRepository(name.MustRepositoryName("gentoo"), repo.CapInstallable)
	add(r, t, "app-misc/a", "1.0", &repo.MemPackage{Rdepend: tree(t, "app-misc/b")})
	add(r, t, "app-misc/b", "1.0", &repo.MemPackage{Rdepend: tree(t, "app-misc/a")})

	e := testEnv(t, r)
	dl, err := New(e, DefaultOptions()).Resolve(context.Background(), PackageTarget(spec(t, "app-misc/a")))
	if err != nil {
		t.Fatalf("Resolve returned an error for a breakable RDEPEND cycle: %v", err)
	}
	if len(dl.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(dl.Entries))
	}
}

func TestResolveStrongBlockIsFatal(t *testing.T) {
	r := repo.NewMemRepository(name.MustRepositoryName("gentoo"), repo.CapInstallable)
	add(r, t, "app-misc/foo", "1.0", &repo.MemPackage{Depend: tree(t, "!!app-misc/bar")})

	installed := repo.NewMemRepository(name.MustRepositoryName("installed"), repo.CapInstalled)
	add(installed, t, "app-misc/bar", "1.0", &repo.MemPackage{})

	e := testEnv(t, r, installed)
	_, err := New(e, DefaultOptions()).Resolve(context.Background(), PackageTarget(spec(t, "app-misc/foo")))
	if _, ok := err.(*BlockError); !ok {
		t.Fatalf("got %T: %v, want *BlockError", err, err)
	}
}

func TestResolveSetTarget(t *testing.T) {
	r := repo.NewMemRepository(name.MustRepositoryName("gentoo"), repo.CapInstallable)
	add(r, t, "app-misc/foo", "1.0", &repo.MemPackage{})
	add(r, t, "app-misc/bar", "1.0", &repo.MemPackage{})

	e := testEnv(t, r)
	e.Sets().SetSystem([]*depspec.PackageDepSpec{spec(t, "app-misc/foo"), spec(t, "app-misc/bar")})

	dl, err := New(e, DefaultOptions()).Resolve(context.Background(), SetTarget(name.MustSetName("system")))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(dl.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(dl.Entries))
	}
	for _, e := range dl.Entries {
		if _, ok := e.Tags[0].(SetDepTag); !ok {
			t.Errorf("entry %s tagged %#v, want SetDepTag", e.ID, e.Tags[0])
		}
	}
}
