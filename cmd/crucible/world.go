package main

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/crucible-pm/crucible/pkg/depparse"
	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/repo"
)

// worldFile is a declarative, TOML-backed repository fixture: a stand-in
// for the out-of-scope on-disk metadata generator (spec.md §1/§4.4) that
// lets -world name a repository's packages and DEPEND-family metadata
// directly instead of through an external recipe generator. Grounded in
// the teacher's toml.go Gopkg.lock-style "parse a declarative manifest
// with go-toml, then build richer in-memory types from it" shape.
type worldFile struct {
	Repository string         `toml:"repository"`
	Installed  bool           `toml:"installed"`
	Packages   []worldPackage `toml:"package"`
}

type worldPackage struct {
	Atom      string   `toml:"atom"`
	Version   string   `toml:"version"`
	Slot      string   `toml:"slot"`
	Keywords  []string `toml:"keywords"`
	Masked    bool     `toml:"masked"`
	Depend    string   `toml:"depend"`
	Rdepend   string   `toml:"rdepend"`
	Pdepend   string   `toml:"pdepend"`
	Sdepend   string   `toml:"sdepend"`
}

// loadWorld reads path and builds a repo.MemRepository from it.
func loadWorld(path string) (*repo.MemRepository, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading world fixture %s", path)
	}
	wf := &worldFile{}
	if err := toml.Unmarshal(b, wf); err != nil {
		return nil, errors.Wrapf(err, "parsing world fixture %s as TOML", path)
	}
	if wf.Repository == "" {
		return nil, errors.Errorf("world fixture %s: missing repository name", path)
	}

	caps := repo.CapInstallable
	if wf.Installed {
		caps = repo.CapInstalled
	}
	r := repo.NewMemRepository(name.MustRepositoryName(wf.Repository), caps)

	for _, wp := range wf.Packages {
		qpn, err := parseQualifiedName(wp.Atom)
		if err != nil {
			return nil, errors.Wrapf(err, "world fixture %s", path)
		}
		version, err := name.ParseVersionSpec(wp.Version)
		if err != nil {
			return nil, errors.Wrapf(err, "world fixture %s: package %s", path, wp.Atom)
		}

		keywords := make([]name.KeywordName, len(wp.Keywords))
		for i, k := range wp.Keywords {
			keywords[i] = name.KeywordName(k)
		}

		depend, err := parseDependTree(wp.Depend)
		if err != nil {
			return nil, errors.Wrapf(err, "world fixture %s: package %s DEPEND", path, wp.Atom)
		}
		rdepend, err := parseDependTree(wp.Rdepend)
		if err != nil {
			return nil, errors.Wrapf(err, "world fixture %s: package %s RDEPEND", path, wp.Atom)
		}
		pdepend, err := parseDependTree(wp.Pdepend)
		if err != nil {
			return nil, errors.Wrapf(err, "world fixture %s: package %s PDEPEND", path, wp.Atom)
		}
		sdepend, err := parseDependTree(wp.Sdepend)
		if err != nil {
			return nil, errors.Wrapf(err, "world fixture %s: package %s SDEPEND", path, wp.Atom)
		}

		r.Add(qpn, &repo.MemPackage{
			Version:  version,
			Slot:     name.SlotName(wp.Slot),
			Keywords: keywords,
			Depend:   depend,
			Rdepend:  rdepend,
			Pdepend:  pdepend,
			Sdepend:  sdepend,
			EAPI:     "pms-0",
			Masked:   wp.Masked,
		})
	}
	return r, nil
}

func parseQualifiedName(atom string) (name.QualifiedPackageName, error) {
	n, err := depparse.Parse(atom, depparse.LeafPackage, depspec.DialectPMS0)
	if err != nil {
		return name.QualifiedPackageName{}, err
	}
	all, ok := n.(*depspec.AllOf)
	if !ok || len(all.Children) != 1 {
		return name.QualifiedPackageName{}, errors.Errorf("%q is not a single package atom", atom)
	}
	spec, ok := all.Children[0].(*depspec.PackageDepSpec)
	if !ok || spec.Category == nil || spec.Package == nil {
		return name.QualifiedPackageName{}, errors.Errorf("%q is not a bare qualified package name", atom)
	}
	return name.QualifiedPackageName{Category: *spec.Category, Package: *spec.Package}, nil
}

func parseDependTree(s string) (depspec.Node, error) {
	if s == "" {
		return nil, nil
	}
	return depparse.Parse(s, depparse.LeafPackage, depspec.DialectPMS0)
}
