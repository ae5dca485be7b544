package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/crucible-pm/crucible/pkg/depparse"
	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/env"
)

// depspecCommand parses a single recipe string in a named dialect and
// prints it back out, exercising spec.md §6.1's parse/print round-trip
// property interactively. It never touches the *env.Environment it is
// handed.
type depspecCommand struct {
	leaf    string
	dialect string
}

func (c *depspecCommand) Name() string { return "depspec" }
func (c *depspecCommand) ShortHelp() string {
	return "parse and print a single recipe string in a named dialect"
}

func (c *depspecCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.leaf, "leaf", "package", "leaf context: package, license, uri, or text")
	fs.StringVar(&c.dialect, "dialect", depspec.DialectPMS0.Name, "dialect: pms-0, paludis-1, or exheres-0")
}

func (c *depspecCommand) Run(_ *env.Environment, args []string) error {
	if len(args) == 0 {
		return errors.New("depspec: no recipe string given")
	}
	d, ok := dialectByName(c.dialect)
	if !ok {
		return errors.Errorf("depspec: unknown dialect %q", c.dialect)
	}
	leaf, ok := leafKindByName(c.leaf)
	if !ok {
		return errors.Errorf("depspec: unknown -leaf %q", c.leaf)
	}

	s := strings.Join(args, " ")
	n, err := depparse.Parse(s, leaf, d)
	if err != nil {
		return errors.Wrap(err, "depspec: parsing")
	}
	fmt.Fprintln(os.Stdout, depspec.Print(n, d))
	return nil
}

func leafKindByName(s string) (depparse.LeafKind, bool) {
	switch s {
	case "package", "":
		return depparse.LeafPackage, true
	case "license":
		return depparse.LeafLicense, true
	case "uri":
		return depparse.LeafURI, true
	case "text":
		return depparse.LeafPlainText, true
	default:
		return 0, false
	}
}
