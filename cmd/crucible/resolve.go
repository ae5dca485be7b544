package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/crucible-pm/crucible/pkg/depparse"
	"github.com/crucible-pm/crucible/pkg/depspec"
	"github.com/crucible-pm/crucible/pkg/env"
	"github.com/crucible-pm/crucible/pkg/name"
	"github.com/crucible-pm/crucible/pkg/resolve"
)

// resolveCommand computes and prints an install plan for its positional
// atom arguments (and/or a -set named set), per spec.md §4.9's Resolver and
// §6.4's CLI surface.
type resolveCommand struct {
	set         string
	dialect     string
	targetSlots string
}

func (c *resolveCommand) Name() string      { return "resolve" }
func (c *resolveCommand) ShortHelp() string { return "compute and print an install plan for the given targets" }

func (c *resolveCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.set, "set", "", "resolve a named package set in addition to any positional atoms")
	fs.StringVar(&c.dialect, "dialect", depspec.DialectPMS0.Name, "dialect to parse positional atoms in")
	fs.StringVar(&c.targetSlots, "target-slots", "best", "target_slots policy: best, all, or installed")
}

func (c *resolveCommand) Run(e *env.Environment, args []string) error {
	d, ok := dialectByName(c.dialect)
	if !ok {
		return errors.Errorf("resolve: unknown dialect %q", c.dialect)
	}

	opts := resolve.DefaultOptions()
	switch c.targetSlots {
	case "all":
		opts.TargetSlots = resolve.TargetSlotsAll
	case "installed":
		opts.TargetSlots = resolve.TargetSlotsInstalled
	case "best", "":
	default:
		return errors.Errorf("resolve: unknown -target-slots %q", c.targetSlots)
	}

	var targets []resolve.Target
	if c.set != "" {
		targets = append(targets, resolve.SetTarget(name.MustSetName(c.set)))
	}
	for _, a := range args {
		spec, err := parsePackageAtom(a, d)
		if err != nil {
			return errors.Wrapf(err, "resolve: target %q", a)
		}
		targets = append(targets, resolve.PackageTarget(spec))
	}
	if len(targets) == 0 {
		return errors.New("resolve: no targets given (pass atoms or -set)")
	}

	dl, err := resolve.New(e, opts).Resolve(context.Background(), targets...)
	if err != nil {
		return err
	}
	printPlan(os.Stdout, dl)
	return nil
}

// parsePackageAtom parses s as a single bare PackageDepSpec, rejecting
// anything structural (AnyOf, Conditional, multiple atoms).
func parsePackageAtom(s string, d depspec.Dialect) (*depspec.PackageDepSpec, error) {
	n, err := depparse.Parse(s, depparse.LeafPackage, d)
	if err != nil {
		return nil, err
	}
	all, ok := n.(*depspec.AllOf)
	if !ok || len(all.Children) != 1 {
		return nil, errors.Errorf("%q is not a single package atom", s)
	}
	spec, ok := all.Children[0].(*depspec.PackageDepSpec)
	if !ok {
		return nil, errors.Errorf("%q is not a package atom", s)
	}
	return spec, nil
}

// printPlan renders dl as a plain tabwriter table; no color or progress
// presentation is attempted, per spec.md §1's scope.
func printPlan(w *os.File, dl *resolve.DepList) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tCLASS\tID\tDESTINATION")
	for _, e := range dl.Entries {
		id := "-"
		if e.ID != nil {
			id = e.ID.String()
		}
		class := e.Classification.String()
		if class == "" {
			class = "-"
		}
		dest := e.Destination.String()
		if dest == "" {
			dest = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Kind, class, id, dest)
	}
	tw.Flush()
}
