package env

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	flock "github.com/theckman/go-flock"

	"github.com/crucible-pm/crucible/pkg/depparse"
	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/name"
)

// setFile is the on-disk shape of one sets/<name>.toml file: a flat atom
// list plus references to other named sets, letting one set nest another
// (spec.md §3's NamedSet(name) node, resolved here rather than by depparse,
// which never does environment lookups).
type setFile struct {
	Atoms []string `toml:"atoms"`
	Sets  []string `toml:"sets"`
}

// SetResolver resolves the named package sets spec.md's glossary calls out
// by name — "system", "world", "everything", and arbitrary user-defined
// sets — into DepSpec trees the resolver can traverse like any other
// dependency. Resolution is lazy and cached per Environment instance, per
// spec.md §4.6.
type SetResolver struct {
	env *Environment

	mu        sync.Mutex
	cache     map[name.SetName]*depspec.AllOf
	setsDir   string
	worldPath string
	worldLock *flock.Flock

	system []*depspec.PackageDepSpec
}

// NewSetResolver builds a SetResolver with no on-disk location configured;
// Configure must be called before World()/UserSet() touch disk. The
// "system" set starts empty; SetSystem pins its atoms (ordinarily
// profile-derived; profiles' recipe-body parsing is out of scope per
// spec.md §1, so the caller supplies the resolved list directly).
func NewSetResolver(e *Environment) *SetResolver {
	return &SetResolver{env: e, cache: make(map[name.SetName]*depspec.AllOf)}
}

// Configure points the resolver at setsDir (holding "<name>.toml" files) and
// worldPath (the persisted world-set file), per spec.md §6.2's sibling
// on-disk surfaces. Must be called once before resolving "world",
// "everything", or any user-defined set backed by setsDir.
func (s *SetResolver) Configure(setsDir, worldPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setsDir = setsDir
	s.worldPath = worldPath
	s.worldLock = flock.NewFlock(worldPath + ".lock")
}

// SetSystem pins the atoms backing the built-in "system" set.
func (s *SetResolver) SetSystem(atoms []*depspec.PackageDepSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.system = atoms
	delete(s.cache, "system")
	delete(s.cache, "everything")
}

// Resolve expands setName into its DepSpec tree, per spec.md §3's
// NamedSet(name). Built-ins ("system", "world", "everything") are handled
// directly; anything else is looked up as "<setsDir>/<name>.toml".
func (s *SetResolver) Resolve(setName name.SetName) (depspec.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(setName, make(map[name.SetName]bool))
}

func (s *SetResolver) resolveLocked(setName name.SetName, seen map[name.SetName]bool) (*depspec.AllOf, error) {
	if tree, ok := s.cache[setName]; ok {
		return tree, nil
	}
	if seen[setName] {
		return nil, errors.Errorf("env: set %q references itself", setName)
	}
	seen[setName] = true

	var tree *depspec.AllOf
	var err error
	switch setName {
	case "system":
		tree = &depspec.AllOf{}
		for _, a := range s.system {
			tree.Children = append(tree.Children, a)
		}
	case "world":
		tree, err = s.loadWorldLocked()
	case "everything":
		sys, e := s.resolveLocked("system", seen)
		if e != nil {
			return nil, e
		}
		world, e := s.resolveLocked("world", seen)
		if e != nil {
			return nil, e
		}
		tree = &depspec.AllOf{Children: append(append([]depspec.Node{}, sys.Children...), world.Children...)}
	default:
		tree, err = s.loadUserSetLocked(setName, seen)
	}
	if err != nil {
		return nil, err
	}
	s.cache[setName] = tree
	return tree, nil
}

func (s *SetResolver) loadUserSetLocked(setName name.SetName, seen map[name.SetName]bool) (*depspec.AllOf, error) {
	if s.setsDir == "" {
		return nil, errors.Errorf("env: no such set %q", setName)
	}
	path := filepath.Join(s.setsDir, string(setName)+".toml")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "env: loading set %q", setName)
	}
	var sf setFile
	if err := toml.Unmarshal(b, &sf); err != nil {
		return nil, errors.Wrapf(err, "env: parsing set %q as TOML", setName)
	}

	tree := &depspec.AllOf{}
	for _, a := range sf.Atoms {
		p, err := parseSetAtom(a)
		if err != nil {
			return nil, errors.Wrapf(err, "env: set %q", setName)
		}
		tree.Children = append(tree.Children, p)
	}
	for _, nested := range sf.Sets {
		nn, err := name.NewSetName(nested)
		if err != nil {
			return nil, errors.Wrapf(err, "env: set %q references", setName)
		}
		sub, err := s.resolveLocked(nn, seen)
		if err != nil {
			return nil, err
		}
		tree.Children = append(tree.Children, sub.Children...)
	}
	return tree, nil
}

func parseSetAtom(a string) (*depspec.PackageDepSpec, error) {
	n, err := depparse.Parse(a, depparse.LeafPackage, depspec.DialectPMS0)
	if err != nil {
		return nil, err
	}
	all, ok := n.(*depspec.AllOf)
	if !ok || len(all.Children) != 1 {
		return nil, errors.Errorf("atom %q is not a single package spec", a)
	}
	p, ok := all.Children[0].(*depspec.PackageDepSpec)
	if !ok {
		return nil, errors.Errorf("atom %q is not a package spec", a)
	}
	return p, nil
}

// loadWorldLocked reads the persisted world set, taking the advisory
// cross-process lock first (spec.md §5 leaves cross-process on-disk safety
// unspecified; go-flock closes that gap the same way the teacher guards
// concurrent "dep ensure" runs over one project).
func (s *SetResolver) loadWorldLocked() (*depspec.AllOf, error) {
	if s.worldPath == "" {
		return &depspec.AllOf{}, nil
	}
	if s.worldLock != nil {
		if err := s.worldLock.Lock(); err != nil {
			return nil, errors.Wrap(err, "env: locking world set")
		}
		defer s.worldLock.Unlock()
	}
	b, err := os.ReadFile(s.worldPath)
	if os.IsNotExist(err) {
		return &depspec.AllOf{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "env: reading world set")
	}
	var wf setFile
	if err := toml.Unmarshal(b, &wf); err != nil {
		return nil, errors.Wrap(err, "env: parsing world set as TOML")
	}
	tree := &depspec.AllOf{}
	for _, a := range wf.Atoms {
		p, err := parseSetAtom(a)
		if err != nil {
			return nil, errors.Wrap(err, "env: world set")
		}
		tree.Children = append(tree.Children, p)
	}
	return tree, nil
}

// AddToWorld appends atom to the persisted world set and saves it under the
// advisory lock, then invalidates the "world"/"everything" cache entries.
// This is how a target explicitly requested by the user (spec.md glossary's
// "World set: packages explicitly installed by the user") gets recorded.
func (s *SetResolver) AddToWorld(atom string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.worldPath == "" {
		return errors.New("env: world set has no configured path")
	}
	if s.worldLock != nil {
		if err := s.worldLock.Lock(); err != nil {
			return errors.Wrap(err, "env: locking world set")
		}
		defer s.worldLock.Unlock()
	}

	var wf setFile
	b, err := os.ReadFile(s.worldPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return errors.Wrap(err, "env: reading world set")
	default:
		if err := toml.Unmarshal(b, &wf); err != nil {
			return errors.Wrap(err, "env: parsing world set as TOML")
		}
	}
	for _, existing := range wf.Atoms {
		if existing == atom {
			return nil
		}
	}
	wf.Atoms = append(wf.Atoms, atom)
	sort.Strings(wf.Atoms)

	out, err := toml.Marshal(wf)
	if err != nil {
		return errors.Wrap(err, "env: marshaling world set")
	}
	if err := os.WriteFile(s.worldPath, out, 0o644); err != nil {
		return errors.Wrap(err, "env: writing world set")
	}
	delete(s.cache, "world")
	delete(s.cache, "everything")
	return nil
}
