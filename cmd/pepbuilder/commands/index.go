package commands

import (
	"fmt"

	"git.home.luguber.info/inful/pepbuilder/internal/pep/zero"
)

// IndexCmd implements the 'index' command.
type IndexCmd struct {
	Output string `short:"o" help:"Directory receiving api/peps.json (overrides output.directory)"`
	NoAPI  bool   `name:"no-api" help:"Only regenerate PEP 0, skip api/peps.json"`
}

func (i *IndexCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	out := outputDir(i.Output, cfg)
	if i.NoAPI {
		out = ""
	}

	gen := zero.NewGenerator()
	gen.CanonicalURL = cfg.PEP.CanonicalURL
	res, err := gen.Generate(cfg.Source.Directory, out)
	if err != nil {
		return err
	}
	state := "unchanged"
	if res.Changed {
		state = "updated"
	}
	_, _ = fmt.Fprintf(g.stdout(), "Indexed %d PEPs, %s %s\n", len(res.PEPs), state, res.Path)
	return nil
}
