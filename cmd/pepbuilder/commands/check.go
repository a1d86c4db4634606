package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/linkcheck"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Output  string `short:"o" help:"Rendered output directory (overrides output.directory)"`
	BaseURL string `name:"base-url" help:"Site URL whose absolute links map onto the output (overrides pep.canonical_url)"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(g)
	if err != nil {
		return err
	}
	base := cfg.PEP.CanonicalURL
	if c.BaseURL != "" {
		base = c.BaseURL
	}
	return runCheck(context.Background(), g, outputDir(c.Output, cfg), base, cfg.Build.Parallel)
}

func runCheck(ctx context.Context, g *Global, outDir, baseURL string, workers int) error {
	checker := linkcheck.NewChecker(outDir, baseURL)
	checker.Workers = workers
	checker.Logger = g.logger()

	report, err := checker.Check(ctx)
	if err != nil {
		return err
	}
	out := g.stdout()
	for _, b := range report.Broken {
		_, _ = fmt.Fprintf(out, "%s: %s (%s)\n", b.Page, b.URL, b.Reason)
	}
	_, _ = fmt.Fprintf(out, "Checked %d links on %d pages, %d broken\n", report.Links, report.Pages, len(report.Broken))
	if !report.OK() {
		return errors.ValidationError(fmt.Sprintf("found %d broken links", len(report.Broken))).
			WithContext("path", outDir).
			Build()
	}
	return nil
}
