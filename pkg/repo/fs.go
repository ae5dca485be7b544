package repo

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/crucible-pm/crucible/pkg/depparse"
	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/pkgid"
)

// recipeFileRE matches the reference on-disk layout's recipe filename,
// spec.md §6.2: "<repo>/<cat>/<pkg>/<pkg>-<ver>.<ext>".
var recipeFileRE = regexp.MustCompile(`^(.+)-([0-9].*)\.[A-Za-z0-9]+$`)

// FSRepository is the reference implementation of spec.md §6.2's on-disk
// repository layout, walked with godirwalk (the teacher's choice for fast
// vendor-tree walking in its own fs layer) instead of filepath.Walk, since
// a repository tree can hold thousands of small per-version files and
// godirwalk avoids filepath.Walk's extra per-entry Lstat.
//
// FSRepository parses only the structural profiles/ files spec.md §6.2
// names; it never parses a recipe body itself (that's the out-of-scope
// "metadata generator", spec.md §1/§4.4) — Dialect/EAPI and DEPEND-family
// trees come from whatever pkgid.Generator is supplied to New.
type FSRepository struct {
	generatingRepository

	root     string
	repoName name.RepositoryName
	dialect  depspec.Dialect
	caps     Capability

	mu          sync.Mutex
	loaded      bool
	cats        []name.CategoryName
	pkgNames    map[name.CategoryName][]name.PackageName
	ids         map[name.QualifiedPackageName][]*pkgid.ID
	packageMask []*depspec.PackageDepSpec
	archList    map[string]bool
	mirrors     map[string][]string
}

// NewFSRepository constructs an FSRepository rooted at root. gen supplies
// per-recipe metadata on cache miss (spec.md §4.4); it may be nil only if
// the caller never asks for a metadata key.
func NewFSRepository(root string, d depspec.Dialect, caps Capability, gen pkgid.Generator) *FSRepository {
	return &FSRepository{
		generatingRepository: newGeneratingRepository(gen),
		root:                 root,
		dialect:              d,
		caps:                 caps,
		pkgNames:             make(map[name.CategoryName][]name.PackageName),
		ids:                  make(map[name.QualifiedPackageName][]*pkgid.ID),
		archList:             make(map[string]bool),
		mirrors:              make(map[string][]string),
	}
}

func (r *FSRepository) Name() name.RepositoryName { return r.repoName }
func (r *FSRepository) Capabilities() Capability  { return r.caps }

// Get fetches one metadata key for id through the repository's metadata
// generator, cached per spec.md §4.4's "generate once, cache forever" rule.
func (r *FSRepository) Get(ctx context.Context, id *pkgid.ID, key pkgid.Key) (pkgid.Metadata, error) {
	return r.get(ctx, id, key)
}

func (r *FSRepository) ensureLoaded() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}
	if err := r.loadProfiles(); err != nil {
		return err
	}
	if err := r.loadTree(); err != nil {
		return err
	}
	r.loaded = true
	return nil
}

// loadProfiles reads spec.md §6.2's companion profiles/ subtree: repo_name,
// categories, package.mask, arch.list, thirdpartymirrors. info_vars and
// info_pkgs are not read — they describe the
// metadata-generator's variable surface, which is out of scope (spec.md §1).
func (r *FSRepository) loadProfiles() error {
	profiles := filepath.Join(r.root, "profiles")

	if b, err := os.ReadFile(filepath.Join(profiles, "repo_name")); err == nil {
		rn, err := name.NewRepositoryName(strings.TrimSpace(string(b)))
		if err != nil {
			return errors.Wrap(err, "fs repository: bad repo_name")
		}
		r.repoName = rn
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "fs repository: reading repo_name")
	}

	if err := forEachLine(filepath.Join(profiles, "categories"), func(line string) error {
		c, err := name.NewCategoryName(line)
		if err != nil {
			return errors.Wrapf(err, "fs repository: bad category in profiles/categories")
		}
		r.cats = append(r.cats, c)
		return nil
	}); err != nil {
		return err
	}

	if err := forEachLine(filepath.Join(profiles, "arch.list"), func(line string) error {
		r.archList[line] = true
		return nil
	}); err != nil {
		return err
	}

	if err := forEachLine(filepath.Join(profiles, "package.mask"), func(line string) error {
		n, err := depparse.Parse(line, depparse.LeafPackage, r.dialect)
		if err != nil {
			return errors.Wrapf(err, "fs repository: bad package.mask entry %q", line)
		}
		all, ok := n.(*depspec.AllOf)
		if !ok || len(all.Children) != 1 {
			return errors.Errorf("fs repository: package.mask entry %q is not a single atom", line)
		}
		p, ok := all.Children[0].(*depspec.PackageDepSpec)
		if !ok {
			return errors.Errorf("fs repository: package.mask entry %q is not a package atom", line)
		}
		r.packageMask = append(r.packageMask, p)
		return nil
	}); err != nil {
		return err
	}

	if err := forEachLine(filepath.Join(profiles, "thirdpartymirrors"), func(line string) error {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil
		}
		r.mirrors[fields[0]] = append([]string{}, fields[1:]...)
		return nil
	}); err != nil {
		return err
	}

	return nil
}

// forEachLine reads path line by line, skipping blanks and "#"-comments,
// calling fn with each trimmed line. A missing file is not an error: not
// every profiles/ file is mandatory.
func forEachLine(path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "reading %s", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// loadTree walks <root>/<cat>/<pkg>/ for recipe files matching
// recipeFileRE, populating r.ids and r.pkgNames. profiles/ itself is
// skipped, since it is not a category.
func (r *FSRepository) loadTree() error {
	entries, err := godirwalk.ReadDirnames(r.root, nil)
	if err != nil {
		return errors.Wrapf(err, "fs repository: reading %s", r.root)
	}
	sort.Strings(entries)

	for _, catEntry := range entries {
		if catEntry == "profiles" || strings.HasPrefix(catEntry, ".") {
			continue
		}
		catPath := filepath.Join(r.root, catEntry)
		info, err := os.Stat(catPath)
		if err != nil || !info.IsDir() {
			continue
		}
		cat, err := name.NewCategoryName(catEntry)
		if err != nil {
			continue
		}

		pkgEntries, err := godirwalk.ReadDirnames(catPath, nil)
		if err != nil {
			return errors.Wrapf(err, "fs repository: reading %s", catPath)
		}
		sort.Strings(pkgEntries)

		for _, pkgEntry := range pkgEntries {
			pkgPath := filepath.Join(catPath, pkgEntry)
			info, err := os.Stat(pkgPath)
			if err != nil || !info.IsDir() {
				continue
			}
			pn, err := name.NewPackageName(pkgEntry)
			if err != nil {
				continue
			}
			qpn := name.QualifiedPackageName{Category: cat, Package: pn}

			if err := godirwalk.Walk(pkgPath, &godirwalk.Options{
				Unsorted: true,
				Callback: func(path string, de *godirwalk.Dirent) error {
					if de.IsDir() {
						return nil
					}
					m := recipeFileRE.FindStringSubmatch(filepath.Base(path))
					if m == nil {
						return nil
					}
					v, err := name.ParseVersionSpec(m[2])
					if err != nil {
						return nil
					}
					r.pkgNames[cat] = appendUnique(r.pkgNames[cat], pn)
					r.ids[qpn] = append(r.ids[qpn], pkgid.New(qpn, v, r.repoName))
					return nil
				},
			}); err != nil {
				return errors.Wrapf(err, "fs repository: walking %s", pkgPath)
			}
		}
	}

	for qpn := range r.ids {
		sort.Slice(r.ids[qpn], func(i, j int) bool { return r.ids[qpn][i].Less(r.ids[qpn][j]) })
	}
	return nil
}

func appendUnique(pns []name.PackageName, pn name.PackageName) []name.PackageName {
	for _, p := range pns {
		if p == pn {
			return pns
		}
	}
	return append(pns, pn)
}

func (r *FSRepository) CategoryNames(ctx context.Context) ([]name.CategoryName, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	return r.cats, nil
}

func (r *FSRepository) PackageNames(ctx context.Context, cat name.CategoryName) ([]name.QualifiedPackageName, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	pns := r.pkgNames[cat]
	out := make([]name.QualifiedPackageName, len(pns))
	for i, pn := range pns {
		out[i] = name.QualifiedPackageName{Category: cat, Package: pn}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

func (r *FSRepository) VersionSpecs(ctx context.Context, qpn name.QualifiedPackageName) ([]name.VersionSpec, error) {
	ids, err := r.PackageIDs(ctx, qpn)
	if err != nil {
		return nil, err
	}
	out := make([]name.VersionSpec, len(ids))
	for i, id := range ids {
		out[i] = id.Version
	}
	return out, nil
}

func (r *FSRepository) HasVersion(ctx context.Context, qpn name.QualifiedPackageName, v name.VersionSpec) (bool, error) {
	specs, err := r.VersionSpecs(ctx, qpn)
	if err != nil {
		return false, err
	}
	for _, s := range specs {
		if s.Equal(v) {
			return true, nil
		}
	}
	return false, nil
}

func (r *FSRepository) PackageIDs(ctx context.Context, qpn name.QualifiedPackageName) ([]*pkgid.ID, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	return r.ids[qpn], nil
}

// RepositoryMasked performs a coarse, name-only check against
// profiles/package.mask (it cannot do a version/slot/USE-aware match
// without importing pkg/match, which itself depends on pkg/repo for its
// Candidate/Index types), so a versioned package.mask entry masks every
// version of its package. env.Environment feeds this result to the Mask
// Engine's Repository source (pkg/mask).
func (r *FSRepository) RepositoryMasked(ctx context.Context, id *pkgid.ID) (bool, error) {
	if err := r.ensureLoaded(); err != nil {
		return false, err
	}
	for _, p := range r.packageMask {
		if matchesMaskPattern(p, id) {
			return true, nil
		}
	}
	return false, nil
}

// PackageMaskPatterns returns the parsed profiles/package.mask entries with
// their version/slot/USE constraints intact, for a caller that matches them
// with match.MatchPackage; env.Environment does not use it.
func (r *FSRepository) PackageMaskPatterns(ctx context.Context) ([]*depspec.PackageDepSpec, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	return r.packageMask, nil
}

// ProfileMasked is always false for the bare reference repository, and
// env.Environment sets no profile mask source either (spec.md §4.6), so a
// profile's package.mask chain masks nothing.
func (r *FSRepository) ProfileMasked(ctx context.Context, id *pkgid.ID) (bool, error) {
	return false, nil
}

// QueryUse reports UseUnspecified unconditionally: IUSE defaults come from
// the metadata generator (KeyIUse), which FSRepository does not interpret
// itself (spec.md §1 places recipe-body parsing out of scope). Callers
// needing a package's IUSE defaults should fetch KeyIUse through the ID's
// Generator-backed Get.
func (r *FSRepository) QueryUse(ctx context.Context, flag name.UseFlagName, id *pkgid.ID) (name.UseState, error) {
	return name.UseUnspecified, nil
}

func (r *FSRepository) IsArchFlag(flag name.UseFlagName) bool {
	return r.archList[flag.String()]
}

// IsExpandFlag always reports false: USE_EXPAND categories are declared in
// a profile's make.defaults, which spec.md §6.2 doesn't name as part of the
// reference layout's companion profiles/ subtree, and so is an
// Environment-level concern here.
func (r *FSRepository) IsExpandFlag(flag name.UseFlagName) bool { return false }

func (r *FSRepository) Mirrors(ctx context.Context, setName string) ([]string, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}
	return r.mirrors[setName], nil
}

// Virtuals returns an empty mapping: virtual packages are themselves
// ordinary recipes with no DEPEND/RDEPEND body, discovered identically to
// any other package by loadTree. FSRepository advertises no dedicated
// virtual-resolution mapping (spec.md §4.5).
func (r *FSRepository) Virtuals(ctx context.Context) (map[name.QualifiedPackageName]*depspec.PackageDepSpec, error) {
	return nil, nil
}

func (r *FSRepository) Invalidate() {
	r.mu.Lock()
	r.loaded = false
	r.cats = nil
	r.pkgNames = make(map[name.CategoryName][]name.PackageName)
	r.ids = make(map[name.QualifiedPackageName][]*pkgid.ID)
	r.packageMask = nil
	r.mu.Unlock()
	r.invalidate()
}

func matchesMaskPattern(p *depspec.PackageDepSpec, id *pkgid.ID) bool {
	if p.Category != nil && *p.Category != id.Name.Category {
		return false
	}
	if p.Package != nil && *p.Package != id.Name.Package {
		return false
	}
	return true
}
