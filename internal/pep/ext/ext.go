// Package ext is the PEP extension: it registers the PEP parser, role,
// translator, builders and PEP 0 generator on a host.Application.
//
// Importing the package changes process-wide state: the default settings
// are updated and the bare "PEP n" resolver is replaced for every document
// parsed afterwards. Neither change can be undone.
package ext

import (
	"context"
	"fmt"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/pepbuilder/internal/doctree"
	"git.home.luguber.info/inful/pepbuilder/internal/gitinfo"
	"git.home.luguber.info/inful/pepbuilder/internal/host"
	"git.home.luguber.info/inful/pepbuilder/internal/inline"
	"git.home.luguber.info/inful/pepbuilder/internal/pep/html"
	"git.home.luguber.info/inful/pepbuilder/internal/pep/parsing"
	"git.home.luguber.info/inful/pepbuilder/internal/pep/zero"
	"git.home.luguber.info/inful/pepbuilder/internal/plugin"
	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

// Name is the registry name of the extension.
const Name = "pep"

// Version is reported in the extension metadata.
const Version = "1.0.0"

// URL templates for pep_url.
const (
	FileURLTemplate      = "pep-%04d.html"
	DirectoryURLTemplate = "../pep-%04d"
)

// MathRendererName is the name the pass-through math renderer is registered under.
const MathRendererName = "maths_to_html"

// DefaultOverrides are merged into the default settings when the package is loaded.
var DefaultOverrides = map[string]any{
	settings.KeyPEPReferences:      true,
	settings.KeyRFCReferences:      true,
	settings.KeyPEPBaseURL:         "",
	settings.KeyPEPFileURLTemplate: "",
	settings.KeyDisableConfig:      true,
}

func init() {
	settings.Defaults().Merge(DefaultOverrides)
	inline.SetPEPResolver(ResolvePEPReference)
	plugin.MustRegister(Extension{})
}

// ResolvePEPReference links a bare "PEP n" or "pep-n" reference to
// sprintf(pep_url, n).
func ResolvePEPReference(s *settings.Settings, m inline.Match) (ast.Node, error) {
	n, err := m.Number("pepnum2", "pepnum1")
	if err != nil {
		return nil, err
	}
	return inline.NewReference(m.Text, fmt.Sprintf(s.String(settings.KeyPEPURL), n)), nil
}

// Extension implements plugin.Plugin.
type Extension struct{}

func (Extension) Name() string { return Name }

func (Extension) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:        Name,
		Version:     Version,
		Description: "Renders PEP sources to HTML and generates the PEP 0 index",
	}
}

// Setup registers the PEP components on app. Registration errors are
// returned as the host reports them.
func (Extension) Setup(app *host.Application) (host.ExtensionMetadata, error) {
	settings.Defaults().Set(settings.KeyPEPURL, FileURLTemplate)

	if err := app.AddBuilder(html.NewFileBuilder, true); err != nil {
		return host.ExtensionMetadata{}, err
	}
	if err := app.AddBuilder(html.NewDirectoryBuilder, true); err != nil {
		return host.ExtensionMetadata{}, err
	}
	if err := app.AddSourceParser(parsing.NewParser(gitinfo.NewResolver(app.SrcDir())), false); err != nil {
		return host.ExtensionMetadata{}, err
	}
	if err := app.AddRole("pep", parsing.PEPRole{}, true); err != nil {
		return host.ExtensionMetadata{}, err
	}
	for _, builder := range []string{"html", "dirhtml"} {
		if err := app.SetTranslator(builder, html.NewTranslator, false); err != nil {
			return host.ExtensionMetadata{}, err
		}
	}
	if _, err := app.Connect(host.EventBeforeReadDocs, zero.NewGenerator().Handle); err != nil {
		return host.ExtensionMetadata{}, err
	}
	if _, err := app.Connect(host.EventBuilderInited, UpdateURLTemplate); err != nil {
		return host.ExtensionMetadata{}, err
	}
	err := app.AddHTMLMathRenderer(MathRendererName,
		doctree.MathRendererPair{Visit: doctree.VisitMath, Depart: DepartMaths},
		doctree.MathRendererPair{Visit: doctree.VisitMathBlock, Depart: DepartMaths},
	)
	if err != nil {
		return host.ExtensionMetadata{}, err
	}

	return host.ExtensionMetadata{
		Version:           Version,
		ParallelReadSafe:  true,
		ParallelWriteSafe: true,
	}, nil
}

// UpdateURLTemplate is the builder-inited callback. Directory builds link
// one level up without a suffix; other builders keep the template.
func UpdateURLTemplate(_ context.Context, app *host.Application, _ *host.Environment) error {
	if b := app.Builder(); b != nil && b.Name() == "dirhtml" {
		settings.Defaults().Set(settings.KeyPEPURL, DirectoryURLTemplate)
	}
	return nil
}

// DepartMaths is the depart half of the math renderer pairs; it writes nothing.
func DepartMaths(util.BufWriter, []byte, ast.Node) {}
