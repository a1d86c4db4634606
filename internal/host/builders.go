package host

import (
	"bytes"
	"context"
	"html/template"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/pepbuilder/internal/doctree"
	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
)

const defaultLayoutSource = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`

// DefaultLayout is the page layout of the stock HTML builders.
var DefaultLayout = template.Must(template.New("page").Parse(defaultLayoutSource))

// HTMLBuilder writes one HTML page per document. With DirectoryStyle each
// page is written as <docname>/index.html.
type HTMLBuilder struct {
	BuilderName    string
	DirectoryStyle bool
	Layout         *template.Template
	// PageContext adds layout values for a document.
	PageContext func(doc *Document) map[string]any

	app *Application
}

// NewStandaloneHTMLBuilder returns the stock "html" builder.
func NewStandaloneHTMLBuilder() Builder {
	return &HTMLBuilder{BuilderName: "html", Layout: DefaultLayout}
}

// NewDirectoryHTMLBuilder returns the stock "dirhtml" builder.
func NewDirectoryHTMLBuilder() Builder {
	return &HTMLBuilder{BuilderName: "dirhtml", DirectoryStyle: true, Layout: DefaultLayout}
}

func (b *HTMLBuilder) Name() string { return b.BuilderName }

// App returns the application the builder was initialized with.
func (b *HTMLBuilder) App() *Application { return b.app }

func (b *HTMLBuilder) Init(app *Application) error {
	b.app = app
	if err := os.MkdirAll(app.OutDir(), 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "cannot create output directory").
			WithContext("path", app.OutDir()).
			Build()
	}
	return nil
}

func (b *HTMLBuilder) TargetPath(docname string) string {
	if b.DirectoryStyle {
		return filepath.Join(filepath.FromSlash(docname), "index.html")
	}
	return filepath.FromSlash(docname) + ".html"
}

// PathToRoot returns the relative URL prefix from docname's page to the
// output root, ending in a slash or empty.
func (b *HTMLBuilder) PathToRoot(docname string) string {
	depth := strings.Count(docname, "/")
	if b.DirectoryStyle {
		depth++
	}
	return strings.Repeat("../", depth)
}

func (b *HTMLBuilder) Write(_ context.Context, doc *Document) error {
	body, err := b.app.RenderBody(doc)
	if err != nil {
		return err
	}
	data := map[string]any{
		"Title":      doc.Title,
		"Body":       template.HTML(body), // #nosec G203 -- rendered from trusted sources
		"Docname":    doc.Name,
		"PathToRoot": b.PathToRoot(doc.Name),
		"Metadata":   doc.Metadata,
	}
	if b.PageContext != nil {
		maps.Copy(data, b.PageContext(doc))
	}

	var buf bytes.Buffer
	if err := b.Layout.Execute(&buf, data); err != nil {
		return errors.WrapError(err, errors.CategoryBuild, "page layout failed").
			WithContext("document", doc.Name).
			Build()
	}
	return b.WriteFile(b.TargetPath(doc.Name), buf.Bytes())
}

// WriteFile writes data to rel under the output directory.
func (b *HTMLBuilder) WriteFile(rel string, data []byte) error {
	path := filepath.Join(b.app.OutDir(), rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "cannot create output directory").
			WithContext("path", filepath.Dir(path)).
			Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "cannot write output").
			WithContext("path", path).
			Build()
	}
	return nil
}

func (b *HTMLBuilder) Finish(context.Context, *Environment) error { return nil }

// RenderBody renders doc.Root to HTML using the active math renderer and the
// translator set for the active builder.
func (a *Application) RenderBody(doc *Document) ([]byte, error) {
	mr, err := a.MathRenderer()
	if err != nil {
		return nil, err
	}
	nodeRenderers := []util.PrioritizedValue{
		util.Prioritized(doctree.NewHTMLRenderer(mr), 500),
	}
	if b := a.Builder(); b != nil {
		if factory, ok := a.Translator(b.Name()); ok {
			nodeRenderers = append(nodeRenderers, util.Prioritized(factory(doc), 100))
		}
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(nodeRenderers...),
		),
	)
	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, doc.Source, doc.Root); err != nil {
		return nil, errors.WrapError(err, errors.CategoryBuild, "cannot render document").
			WithContext("document", doc.Name).
			Build()
	}
	return buf.Bytes(), nil
}
