package repo

import (
	"context"
	"sort"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/pkgid"
)

// MemPackage is one (version, IUSE, KEYWORDS, ...) entry fed to a
// MemRepository builder, used for test fixtures and for the CLI's -world
// fixture (cmd/crucible/world.go) — grounded in the teacher's solver_inputs_test.go/bestiary_test.go style of
// a small fluent builder for constructing test repositories.
type MemPackage struct {
	Version  name.VersionSpec
	Slot     name.SlotName
	Keywords []name.KeywordName
	IUse     []pkgid.IUseFlag
	Depend   depspec.Node
	Rdepend  depspec.Node
	Pdepend  depspec.Node
	Sdepend  depspec.Node
	License  depspec.Node
	EAPI     string
	Masked   bool // repository_masked
}

// MemRepository is an in-memory Repository, built with Add and queried
// exactly like any other Repository. It never invokes an external
// metadata generator: the fields given to Add are its metadata.
type MemRepository struct {
	generatingRepository

	repoName name.RepositoryName
	caps     Capability

	pkgs     map[name.QualifiedPackageName][]*MemPackage
	ids      map[name.QualifiedPackageName][]*pkgid.ID
	idByKey  map[*pkgid.ID]*MemPackage
	virtuals map[name.QualifiedPackageName]*depspec.PackageDepSpec
	archFlags map[name.UseFlagName]bool
	expandFlags map[name.UseFlagName]bool
	mirrors  map[string][]string
}

// NewMemRepository constructs an empty MemRepository named rn with the
// given capabilities (spec.md §4.5's installable/installed/uninstallable/
// syncable/world-holding flags).
func NewMemRepository(rn name.RepositoryName, caps Capability) *MemRepository {
	return &MemRepository{
		generatingRepository: newGeneratingRepository(nil),
		repoName:              rn,
		caps:                  caps,
		pkgs:                  make(map[name.QualifiedPackageName][]*MemPackage),
		ids:                   make(map[name.QualifiedPackageName][]*pkgid.ID),
		idByKey:               make(map[*pkgid.ID]*MemPackage),
		virtuals:              make(map[name.QualifiedPackageName]*depspec.PackageDepSpec),
		archFlags:             make(map[name.UseFlagName]bool),
		expandFlags:           make(map[name.UseFlagName]bool),
		mirrors:               make(map[string][]string),
	}
}

// Add registers qpn at the given MemPackage entry, returning the ID handed
// out for it. IDs for a qpn are always returned from PackageIDs in
// ascending version order, sorted on every Add.
func (m *MemRepository) Add(qpn name.QualifiedPackageName, p *MemPackage) *pkgid.ID {
	id := pkgid.New(qpn, p.Version, m.repoName)
	m.pkgs[qpn] = append(m.pkgs[qpn], p)
	m.ids[qpn] = append(m.ids[qpn], id)
	m.idByKey[id] = p
	sort.Slice(m.ids[qpn], func(i, j int) bool { return m.ids[qpn][i].Less(m.ids[qpn][j]) })
	return id
}

// AddVirtual registers qpn as a virtual resolving to target, per spec.md
// §4.5's Virtuals() mapping.
func (m *MemRepository) AddVirtual(qpn name.QualifiedPackageName, target *depspec.PackageDepSpec) {
	m.virtuals[qpn] = target
}

// SetArchFlag marks flag as an architecture (KEYWORDS-derived) USE flag.
func (m *MemRepository) SetArchFlag(flag name.UseFlagName) { m.archFlags[flag] = true }

// SetExpandFlag marks flag as a USE_EXPAND-derived flag.
func (m *MemRepository) SetExpandFlag(flag name.UseFlagName) { m.expandFlags[flag] = true }

// SetMirrors registers the URL list for a named mirror group.
func (m *MemRepository) SetMirrors(setName string, urls []string) { m.mirrors[setName] = urls }

func (m *MemRepository) lookup(id *pkgid.ID) *MemPackage {
	return m.idByKey[id]
}

func (m *MemRepository) Name() name.RepositoryName { return m.repoName }
func (m *MemRepository) Capabilities() Capability  { return m.caps }

func (m *MemRepository) CategoryNames(ctx context.Context) ([]name.CategoryName, error) {
	seen := make(map[name.CategoryName]bool)
	var out []name.CategoryName
	for qpn := range m.pkgs {
		if !seen[qpn.Category] {
			seen[qpn.Category] = true
			out = append(out, qpn.Category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *MemRepository) PackageNames(ctx context.Context, cat name.CategoryName) ([]name.QualifiedPackageName, error) {
	var out []name.QualifiedPackageName
	for qpn := range m.pkgs {
		if qpn.Category == cat {
			out = append(out, qpn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

func (m *MemRepository) VersionSpecs(ctx context.Context, qpn name.QualifiedPackageName) ([]name.VersionSpec, error) {
	var out []name.VersionSpec
	for _, id := range m.ids[qpn] {
		out = append(out, id.Version)
	}
	return out, nil
}

func (m *MemRepository) HasVersion(ctx context.Context, qpn name.QualifiedPackageName, v name.VersionSpec) (bool, error) {
	for _, id := range m.ids[qpn] {
		if id.Version.Equal(v) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemRepository) PackageIDs(ctx context.Context, qpn name.QualifiedPackageName) ([]*pkgid.ID, error) {
	return m.ids[qpn], nil
}

func (m *MemRepository) RepositoryMasked(ctx context.Context, id *pkgid.ID) (bool, error) {
	p := m.lookup(id)
	return p != nil && p.Masked, nil
}

// ProfileMasked is always false for MemRepository. Profile masking is an
// Environment-level concern (spec.md §4.6/§4.8), but env.Environment sets
// no profile mask source, so nothing is profile-masked.
func (m *MemRepository) ProfileMasked(ctx context.Context, id *pkgid.ID) (bool, error) {
	return false, nil
}

func (m *MemRepository) QueryUse(ctx context.Context, flag name.UseFlagName, id *pkgid.ID) (name.UseState, error) {
	p := m.lookup(id)
	if p == nil {
		return name.UseUnspecified, nil
	}
	for _, iu := range p.IUse {
		if iu.Flag == flag {
			return iu.Default, nil
		}
	}
	return name.UseUnspecified, nil
}

func (m *MemRepository) IsArchFlag(flag name.UseFlagName) bool    { return m.archFlags[flag] }
func (m *MemRepository) IsExpandFlag(flag name.UseFlagName) bool { return m.expandFlags[flag] }

func (m *MemRepository) Mirrors(ctx context.Context, setName string) ([]string, error) {
	return m.mirrors[setName], nil
}

func (m *MemRepository) Virtuals(ctx context.Context) (map[name.QualifiedPackageName]*depspec.PackageDepSpec, error) {
	return m.virtuals, nil
}

func (m *MemRepository) Invalidate() { m.invalidate() }

// Slot returns p's SLOT, implementing match.SlotFunc when adapted by a
// caller (e.g. `func(id *pkgid.ID) (name.SlotName, error) { return
// repo.Slot(id) }`).
func (m *MemRepository) Slot(id *pkgid.ID) (name.SlotName, error) {
	p := m.lookup(id)
	if p == nil {
		return "", &NoSuchPackageError{QPN: id.Name}
	}
	return p.Slot, nil
}

// Fixture returns the full MemPackage backing id, for tests that want to
// inspect DEPEND/RDEPEND/etc. trees directly rather than going through
// pkgid.Generator.
func (m *MemRepository) Fixture(id *pkgid.ID) *MemPackage {
	return m.lookup(id)
}

// Get implements the Repository metadata-fetch hook by reading straight out
// of the MemPackage given to Add — a MemRepository never needs
// pkgid.Generator, since its fixtures already carry every key's value.
func (m *MemRepository) Get(ctx context.Context, id *pkgid.ID, key pkgid.Key) (pkgid.Metadata, error) {
	p := m.lookup(id)
	if p == nil {
		return pkgid.Metadata{}, &NoSuchPackageError{QPN: id.Name}
	}
	switch key {
	case pkgid.KeySlot:
		return pkgid.Metadata{Slot: p.Slot}, nil
	case pkgid.KeyKeywords:
		return pkgid.Metadata{Keywords: p.Keywords}, nil
	case pkgid.KeyIUse:
		return pkgid.Metadata{IUse: p.IUse}, nil
	case pkgid.KeyLicense:
		return pkgid.Metadata{Tree: p.License}, nil
	case pkgid.KeyDepend:
		return pkgid.Metadata{Tree: p.Depend}, nil
	case pkgid.KeyRdepend:
		return pkgid.Metadata{Tree: p.Rdepend}, nil
	case pkgid.KeyPdepend:
		return pkgid.Metadata{Tree: p.Pdepend}, nil
	case pkgid.KeySdepend:
		return pkgid.Metadata{Tree: p.Sdepend}, nil
	case pkgid.KeyEAPI:
		return pkgid.Metadata{Text: p.EAPI}, nil
	default:
		return pkgid.Metadata{}, nil
	}
}
