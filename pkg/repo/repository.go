// Package repo implements the Repository interface described in spec.md
// §4.5: an abstract source of package IDs, metadata, masks, virtuals, and
// USE state, plus two concrete implementations — an in-memory one for
// tests, and a reference on-disk one.
package repo

import (
	"context"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/pkgid"
)

// Capability flags a Repository advertises about itself, per spec.md §4.5.
type Capability int

const (
	CapInstallable Capability = 1 << iota
	CapInstalled
	CapUninstallable
	CapSyncable
	CapWorldHolding
)

// Repository is the abstract source of package data the rest of the module
// consumes, per spec.md §4.5. A repository is expected to invalidate and
// reload cheaply on request (e.g. after a sync) — Invalidate is that hook.
type Repository interface {
	Name() name.RepositoryName
	Capabilities() Capability

	CategoryNames(ctx context.Context) ([]name.CategoryName, error)
	PackageNames(ctx context.Context, cat name.CategoryName) ([]name.QualifiedPackageName, error)
	VersionSpecs(ctx context.Context, qpn name.QualifiedPackageName) ([]name.VersionSpec, error)
	HasVersion(ctx context.Context, qpn name.QualifiedPackageName, v name.VersionSpec) (bool, error)

	// PackageIDs returns qpn's IDs in ascending version order.
	PackageIDs(ctx context.Context, qpn name.QualifiedPackageName) ([]*pkgid.ID, error)

	// Get fetches one metadata key for id, generating and caching it on
	// first access per spec.md §4.4.
	Get(ctx context.Context, id *pkgid.ID, key pkgid.Key) (pkgid.Metadata, error)

	RepositoryMasked(ctx context.Context, id *pkgid.ID) (bool, error)
	ProfileMasked(ctx context.Context, id *pkgid.ID) (bool, error)
	QueryUse(ctx context.Context, flag name.UseFlagName, id *pkgid.ID) (name.UseState, error)
	IsArchFlag(flag name.UseFlagName) bool
	IsExpandFlag(flag name.UseFlagName) bool
	Mirrors(ctx context.Context, setName string) ([]string, error)
	Virtuals(ctx context.Context) (map[name.QualifiedPackageName]*depspec.PackageDepSpec, error)

	// Invalidate discards any cached state, forcing the next call to
	// re-derive it from the backing store.
	Invalidate()
}
