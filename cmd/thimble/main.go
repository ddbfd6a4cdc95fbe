// Command thimble inspects YAML component definitions.
//
//	thimble lint [-resolve] components.yaml
//	thimble graph components.yaml
//	thimble dot components.yaml
//	thimble table components.yaml
//
// Recipes are replaced by stubs, so a document can be checked without the
// program that owns it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/danpasecinic/thimble"
	"github.com/danpasecinic/thimble/yamldef"
)

var errUsage = errors.New("usage: thimble <lint|graph|dot|table> [flags] <file>")

func main() {
	cfg := loadConfig()
	if err := run(context.Background(), os.Args[1:], os.Stdout, cfg.logger(os.Stderr)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, logger *slog.Logger) error {
	if len(args) == 0 {
		return errUsage
	}

	command, args := args[0], args[1:]
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	resolve := fs.Bool("resolve", false, "start the container with stub recipes")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	c, err := load(fs.Arg(0), logger)
	if err != nil {
		return err
	}

	switch command {
	case "lint":
		return lint(ctx, c, *resolve, out)
	case "graph":
		c.FprintGraph(out)
	case "dot":
		c.FprintGraphDOT(out)
	case "table":
		c.FprintTable(out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
	return nil
}

func load(path string, logger *slog.Logger) (*thimble.Container, error) {
	doc, err := yamldef.LoadFile(path)
	if err != nil {
		return nil, err
	}

	c := thimble.New(
		thimble.WithLogger(logger),
		thimble.WithDefaultInjector(yamldef.StubInjector),
	)
	if err := doc.Apply(c, doc.StubRecipes()); err != nil {
		return nil, err
	}
	logger.Debug("loaded definitions", "file", path, "components", c.Size())
	return c, nil
}

func lint(ctx context.Context, c *thimble.Container, resolve bool, out io.Writer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if resolve {
		if err := c.Start(ctx); err != nil {
			return err
		}
		if err := c.Stop(ctx); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "ok: %d components\n", c.Size())
	return nil
}
