package env

import (
	"context"
	"log"

	"github.com/pkg/errors"

	"github.com/crucible-pm/crucible/pkg/depparse"
	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/mask"
	"github.com/crucible-pm/crucible/pkg/match"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/pkgid"
	"github.com/crucible-pm/crucible/pkg/repo"
)

// Environment aggregates repositories into an ordered list (first is the
// favourite, per spec.md §4.6), resolves named sets, and answers
// mask_reasons(id) by wiring the repository, match, and mask layers
// together. Logging is threaded explicitly via *log.Logger, the way the
// teacher threads a TraceLogger through SolveParameters, rather than a
// package-level logger singleton.
type Environment struct {
	repos []repo.Repository

	userUse       map[name.UseFlagName]bool
	acceptedArchs map[string]bool
	licenses      map[string]bool
	dialects      map[string]bool

	userMask   []*depspec.PackageDepSpec
	userUnmask []*depspec.PackageDepSpec

	sets   *SetResolver
	logger *log.Logger
}

// New builds an Environment from cfg's parsed configuration and the given
// repositories, ordered favourite-first. dialectOf resolves each
// RepositoryConfig's Dialect tag, and the resulting dialect names form the
// set of EAPIs the mask engine accepts. The user's package.mask/unmask
// atoms are parsed with DialectPMS0.
func New(cfg *Config, repos []repo.Repository, dialectOf func(name string) depspec.Dialect, logger *log.Logger) (*Environment, error) {
	if logger == nil {
		logger = log.Default()
	}
	e := &Environment{
		repos:         repos,
		userUse:       make(map[name.UseFlagName]bool, len(cfg.UseFlags)),
		acceptedArchs: acceptedKeywordArchSet(cfg.Keywords),
		licenses:      acceptedSet(cfg.Licenses),
		dialects:      make(map[string]bool),
		logger:        logger,
	}
	for flag, enabled := range cfg.UseFlags {
		e.userUse[name.MustUseFlagName(flag)] = enabled
	}
	for _, rc := range cfg.Repositories {
		e.dialects[dialectOf(rc.Dialect).Name] = true
	}

	var err error
	e.userMask, err = parseAtomList(cfg.PackageMask, depspec.DialectPMS0)
	if err != nil {
		return nil, errors.Wrap(err, "env: parsing package_mask")
	}
	e.userUnmask, err = parseAtomList(cfg.PackageUnmask, depspec.DialectPMS0)
	if err != nil {
		return nil, errors.Wrap(err, "env: parsing package_unmask")
	}

	e.sets = NewSetResolver(e)
	return e, nil
}

func parseAtomList(atoms []string, d depspec.Dialect) ([]*depspec.PackageDepSpec, error) {
	out := make([]*depspec.PackageDepSpec, 0, len(atoms))
	for _, a := range atoms {
		n, err := depparse.Parse(a, depparse.LeafPackage, d)
		if err != nil {
			return nil, errors.Wrapf(err, "bad atom %q", a)
		}
		all, ok := n.(*depspec.AllOf)
		if !ok || len(all.Children) != 1 {
			return nil, errors.Errorf("atom %q is not a single package spec", a)
		}
		p, ok := all.Children[0].(*depspec.PackageDepSpec)
		if !ok {
			return nil, errors.Errorf("atom %q is not a package spec", a)
		}
		out = append(out, p)
	}
	return out, nil
}

// Repositories returns the configured repositories in priority order,
// favourite first.
func (e *Environment) Repositories() []repo.Repository { return e.repos }

// Favourite returns the first repository in priority order, used to break
// ties among otherwise-equal candidates (spec.md §4.6, §4.9 step 3).
func (e *Environment) Favourite() repo.Repository {
	if len(e.repos) == 0 {
		return nil
	}
	return e.repos[0]
}

// Logger returns the environment's threaded *log.Logger.
func (e *Environment) Logger() *log.Logger { return e.logger }

// repositoryOf finds the repository that owns id, by name.
func (e *Environment) repositoryOf(id *pkgid.ID) repo.Repository {
	for _, r := range e.repos {
		if r.Name() == id.Repository {
			return r
		}
	}
	return nil
}

// UseState implements match.UseStateFunc: the user's configured USE value
// if the flag is user-set, otherwise the repository's profile/IUSE default
// via QueryUse, otherwise unspecified.
func (e *Environment) UseState(flag name.UseFlagName, id *pkgid.ID) name.UseState {
	if enabled, ok := e.userUse[flag]; ok {
		if enabled {
			return name.UseEnabled
		}
		return name.UseDisabled
	}
	r := e.repositoryOf(id)
	if r == nil {
		return name.UseUnspecified
	}
	state, err := r.QueryUse(context.Background(), flag, id)
	if err != nil {
		e.logger.Printf("env: QueryUse(%s, %s): %v", flag, id, err)
		return name.UseUnspecified
	}
	return state
}

// Slot implements match.SlotFunc by fetching KeySlot from id's owning
// repository's metadata generator.
func (e *Environment) Slot(id *pkgid.ID) (name.SlotName, error) {
	r := e.repositoryOf(id)
	if r == nil {
		return "", &repo.NoSuchPackageError{QPN: id.Name}
	}
	md, err := r.Get(context.Background(), id, pkgid.KeySlot)
	if err != nil {
		return "", errors.Wrapf(err, "env: fetching SLOT for %s", id)
	}
	return md.Slot, nil
}

// MaskReasons computes mask_reasons(id) per spec.md §4.8, combining the
// repository's own masking, the user's package.mask/unmask, accepted
// keywords/licenses, and dialect acceptance into a single Reasons bitset.
// No profile mask and no by-association source is filled in, so those two
// reasons are never reported.
func (e *Environment) MaskReasons(ctx context.Context, id *pkgid.ID) (mask.Reasons, error) {
	r := e.repositoryOf(id)
	if r == nil {
		return 0, &repo.NoSuchPackageError{QPN: id.Name}
	}

	repoMasked, err := r.RepositoryMasked(ctx, id)
	if err != nil {
		return 0, errors.Wrapf(err, "env: RepositoryMasked(%s)", id)
	}

	keywordsMD, err := r.Get(ctx, id, pkgid.KeyKeywords)
	if err != nil {
		return 0, errors.Wrapf(err, "env: fetching KEYWORDS for %s", id)
	}
	licenseMD, err := r.Get(ctx, id, pkgid.KeyLicense)
	if err != nil {
		return 0, errors.Wrapf(err, "env: fetching LICENSE for %s", id)
	}
	eapiMD, err := r.Get(ctx, id, pkgid.KeyEAPI)
	if err != nil {
		return 0, errors.Wrapf(err, "env: fetching EAPI for %s", id)
	}

	cand := mask.Candidate{
		ID:       id,
		Keywords: keywordsMD.Keywords,
		License:  licenseMD.Tree,
		EAPI:     eapiMD.Text,
	}
	useState := match.UseStateFunc(e.UseState)
	src := mask.Sources{
		AcceptedKeywords: e.acceptedArchs,
		UserMask:         e.userMask,
		UserUnmask:       e.userUnmask,
		RepositoryMasked: func(*pkgid.ID) bool { return repoMasked },
		AcceptedLicenses: e.licenses,
		KnownDialects:    e.dialects,
		UseState:         useState,
	}
	return mask.Compute(cand, src), nil
}

// NotMasked adapts MaskReasons into a func(*pkgid.ID) bool that reports
// true when id has no mask reasons (an error counts as masked), per
// spec.md §8 invariant 6. It is the complement of the isMasked predicate
// match.NotMasked takes.
func (e *Environment) NotMasked(ctx context.Context) func(*pkgid.ID) bool {
	return func(id *pkgid.ID) bool {
		r, err := e.MaskReasons(ctx, id)
		if err != nil {
			e.logger.Printf("env: MaskReasons(%s): %v", id, err)
			return false
		}
		return r.Empty()
	}
}

// Sets returns the environment's named-set resolver.
func (e *Environment) Sets() *SetResolver { return e.sets }
