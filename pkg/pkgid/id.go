// Package pkgid implements the PackageID handle described in spec.md §4.4:
// a persistent, shared reference to a (QualifiedPackageName, VersionSpec,
// RepositoryName) triple, plus metadata keys that are generated and cached
// lazily, exactly once per key.
package pkgid

import (
	"context"
	"sync"

	"github.com/crucible-pm/crucible/pkg/name"
)

// ID identifies one concrete package build. Equality is structural on the
// triple; ordering is (name, version, repository), per spec.md §3.
//
// An ID's metadata is not loaded at construction; each key is fetched and
// cached independently the first time it's asked for (see Get), mirroring
// the teacher's maybeSource "try once, cache the result" shape in
// maybe_source.go, realized here with a sync.Once per key instead of a
// bespoke retry-on-failure wrapper, since a metadata generator failure is
// not something pkgid itself retries.
type ID struct {
	Name       name.QualifiedPackageName
	Version    name.VersionSpec
	Repository name.RepositoryName

	slots [numKeys]keySlot
}

type keySlot struct {
	once  sync.Once
	value Metadata
	err   error
}

// New constructs an ID. The returned value shares no state with any other
// ID; repositories are expected to hold the canonical instance and hand out
// shared pointers to it, per spec.md §3's "a repository owns the canonical
// instance" rule — pkgid does not itself enforce that sharing discipline.
func New(qpn name.QualifiedPackageName, v name.VersionSpec, repo name.RepositoryName) *ID {
	return &ID{Name: qpn, Version: v, Repository: repo}
}

// Equal reports structural equality on the (name, version, repository)
// triple. Version equality uses the normalized tuple (name.VersionSpec.Equal),
// not textual comparison.
func (id *ID) Equal(o *ID) bool {
	if id == o {
		return true
	}
	if id == nil || o == nil {
		return false
	}
	return id.Name == o.Name && id.Repository == o.Repository && id.Version.Equal(o.Version)
}

// Less gives IDs the total order spec.md §3 names: name, then version, then
// repository.
func (id *ID) Less(o *ID) bool {
	if id.Name != o.Name {
		return id.Name.Less(o.Name)
	}
	if !id.Version.Equal(o.Version) {
		return id.Version.Less(o.Version)
	}
	return id.Repository < o.Repository
}

func (id *ID) String() string {
	return id.Name.String() + "-" + id.Version.String() + "::" + id.Repository.String()
}

// Get returns key's value, generating it through gen on first access and
// caching the result (success or failure) for the lifetime of id.
func (id *ID) Get(ctx context.Context, key Key, gen Generator) (Metadata, error) {
	slot := &id.slots[key]
	slot.once.Do(func() {
		slot.value, slot.err = gen.Generate(ctx, id, key)
	})
	return slot.value, slot.err
}
