package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pepbuilder/cmd/pepbuilder/commands"
	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/version"

	// Registers the "pep" extension.
	_ "git.home.luguber.info/inful/pepbuilder/internal/pep/ext"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cli := &commands.CLI{}
	parser, err := kong.New(cli,
		kong.Name("pepbuilder"),
		kong.Description("Render PEP documents and the PEP 0 index into a static HTML site."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return 2
	}

	global := &commands.Global{}
	if err := ctx.Run(global, cli); err != nil {
		adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		adapter.Log(err)
		fmt.Fprintln(os.Stderr, adapter.FormatError(err))
		return adapter.ExitCodeFor(err)
	}
	return 0
}
