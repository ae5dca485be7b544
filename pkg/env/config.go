// Package env implements the Environment described in spec.md §4.6: it
// aggregates repositories into an ordered list, enforces a favourite
// repository for ambiguous lookups, resolves named sets, and computes
// mask_reasons(id) by wiring pkg/repo, pkg/match, and pkg/mask together.
package env

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/crucible-pm/crucible/pkg/name"
)

// Config is the on-disk, TOML-backed environment configuration, loaded the
// way the teacher's registry_config.go loads Gopkg.reg: an intermediate raw
// struct with `toml` tags, unmarshaled with go-toml, then copied into the
// richer in-memory type callers actually use.
type Config struct {
	Repositories []RepositoryConfig `toml:"repository"`
	UseFlags     map[string]bool    `toml:"use"`
	Keywords     []string           `toml:"accepted_keywords"`
	Licenses     []string           `toml:"accepted_licenses"`

	PackageMask   []string `toml:"package_mask"`
	PackageUnmask []string `toml:"package_unmask"`

	// Destination holds spec.md §6.3's "destination" field. Nothing else
	// reads it: the resolver sets each entry's Destination to the name of
	// the repository its candidate came from.
	Destination string `toml:"destination"`
}

// RepositoryConfig names one configured repository and its priority order
// (position in the list is the priority; the first entry is the favourite
// repository spec.md §4.6 requires for ambiguous lookups).
type RepositoryConfig struct {
	Name string `toml:"name"`
	Root string `toml:"root"`
	// Dialect names the grammar this repository's recipes are parsed in
	// (depspec.Dialect.Name, e.g. "pms-0").
	Dialect string `toml:"dialect"`
}

// LoadConfig reads and parses a TOML environment configuration file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "env: reading config %s", path)
	}
	cfg := &Config{}
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "env: parsing config %s as TOML", path)
	}
	return cfg, nil
}

// Save serializes cfg back to TOML, mirroring registry_config.go's
// MarshalTOML round-trip.
func (c *Config) Save(path string) error {
	b, err := toml.Marshal(*c)
	if err != nil {
		return errors.Wrap(err, "env: marshaling config to TOML")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "env: writing config %s", path)
	}
	return nil
}

// acceptedSet turns a string slice from Config into the map form
// pkg/mask.Sources wants.
func acceptedSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, i := range items {
		out[i] = true
	}
	return out
}

// acceptedKeywordArchSet turns Config.Keywords, which may include the
// "~arch" unstable form, into the plain arch-name set pkg/mask.keywordAccepted
// compares against (name.KeywordName.Arch() already strips the "~").
func acceptedKeywordArchSet(keywords []string) map[string]bool {
	out := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		out[name.KeywordName(k).Arch()] = true
	}
	return out
}
