// Command crucible is a thin CLI boundary over pkg/resolve and
// pkg/depspec, matching cmd/dep/main.go's command-table pattern.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/crucible-pm/crucible/pkg/env"
)

// command is the simplified single-binary command surface: unlike the
// teacher's command interface, every subcommand here runs against a shared
// *env.Environment built once from the global -env/-world flags rather than
// a per-command context type.
type command interface {
	Name() string
	ShortHelp() string
	Register(fs *flag.FlagSet)
	Run(e *env.Environment, args []string) error
}

func main() {
	c := &Config{
		Args:   os.Args,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Env:    os.Environ(),
	}
	os.Exit(c.Run())
}

// Config specifies a full configuration for a crucible execution.
type Config struct {
	Args           []string
	Env            []string
	Stdout, Stderr io.Writer
}

// Run executes a configuration and returns an exit code.
func (c *Config) Run() (exitCode int) {
	commands := []command{
		&resolveCommand{},
		&depspecCommand{},
	}

	errLogger := log.New(c.Stderr, "", 0)

	usage := func() {
		errLogger.Println("crucible is a dependency-resolution toolkit")
		errLogger.Println()
		errLogger.Println("Usage: crucible <command> [flags] [args...]")
		errLogger.Println()
		errLogger.Println("Commands:")
		errLogger.Println()
		w := tabwriter.NewWriter(c.Stderr, 0, 4, 2, ' ', 0)
		for _, cmd := range commands {
			fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
		}
		w.Flush()
	}

	if len(c.Args) < 2 || strings.HasPrefix(c.Args[1], "-h") || c.Args[1] == "help" {
		usage()
		return 1
	}
	cmdName := c.Args[1]

	for _, cmd := range commands {
		if cmd.Name() != cmdName {
			continue
		}

		fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
		fs.SetOutput(c.Stderr)
		envPath := fs.String("env", "", "path to a TOML environment configuration")
		worldPath := fs.String("world", "", "path to a TOML declarative repository fixture")
		cmd.Register(fs)

		if err := fs.Parse(c.Args[2:]); err != nil {
			return 1
		}

		e, err := buildEnvironment(*envPath, *worldPath, errLogger)
		if err != nil {
			errLogger.Printf("crucible: %v\n", err)
			return 1
		}

		if err := cmd.Run(e, fs.Args()); err != nil {
			errLogger.Printf("crucible: %v\n", err)
			return 1
		}
		return 0
	}

	errLogger.Printf("crucible: %s: no such command\n", cmdName)
	usage()
	return 1
}
