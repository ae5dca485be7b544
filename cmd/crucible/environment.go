package main

import (
	"log"

	"github.com/pkg/errors"

	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/env"
	"github.com/crucible-pm/crucible/pkg/repo"
)

// dialectByName resolves a configured Dialect tag to the dialect value
// pkg/depparse and pkg/env expect, per the small closed set spec.md §4.3
// names.
func dialectByName(name string) (depspec.Dialect, bool) {
	switch name {
	case "", depspec.DialectPMS0.Name:
		return depspec.DialectPMS0, true
	case depspec.DialectPaludis1.Name:
		return depspec.DialectPaludis1, true
	case depspec.DialectExheres0.Name:
		return depspec.DialectExheres0, true
	default:
		return depspec.Dialect{}, false
	}
}

// buildEnvironment assembles the *env.Environment every command runs
// against: envPath names a TOML configuration (spec.md §6.3), worldPath
// names a declarative repository fixture (see world.go) standing in for
// the out-of-scope on-disk metadata generator spec.md §1/§4.4 leaves
// external. An empty envPath gives a default configuration that accepts
// only the amd64 keyword; an empty worldPath gives no repositories — enough
// for depspecCommand, which never queries one.
func buildEnvironment(envPath, worldPath string, logger *log.Logger) (*env.Environment, error) {
	cfg := &env.Config{Keywords: []string{"amd64"}}
	if envPath != "" {
		loaded, err := env.LoadConfig(envPath)
		if err != nil {
			return nil, errors.Wrap(err, "loading -env configuration")
		}
		cfg = loaded
	}

	var repos []repo.Repository
	if worldPath != "" {
		r, err := loadWorld(worldPath)
		if err != nil {
			return nil, errors.Wrap(err, "loading -world fixture")
		}
		repos = append(repos, r)
	}

	e, err := env.New(cfg, repos, func(name string) depspec.Dialect {
		d, _ := dialectByName(name)
		return d
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "building environment")
	}
	return e, nil
}
