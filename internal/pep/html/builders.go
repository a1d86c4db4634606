package html

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/host"
	"git.home.luguber.info/inful/pepbuilder/internal/pep/parsing"
)

// IndexDocname is the docname of PEP 0.
const IndexDocname = "pep-0000"

// StylesheetPath is where the page stylesheet is written, relative to the output dir.
const StylesheetPath = "_static/style.css"

//go:embed templates/*
var templateFS embed.FS

var (
	pageLayout     = template.Must(template.ParseFS(templateFS, "templates/page.html"))
	redirectLayout = template.Must(template.ParseFS(templateFS, "templates/redirect.html"))
)

// PageBuilder writes PEP pages with the PEP layout, the stylesheet and a
// root index.html redirecting to PEP 0.
type PageBuilder struct {
	*host.HTMLBuilder
}

// FileBuilder writes pep-NNNN.html files.
type FileBuilder struct {
	*PageBuilder
}

// DirectoryBuilder writes pep-NNNN/index.html files.
type DirectoryBuilder struct {
	*PageBuilder
}

// NewFileBuilder is the host.BuilderFactory of the "html" builder.
func NewFileBuilder() host.Builder {
	return &FileBuilder{PageBuilder: newPageBuilder("html", false)}
}

// NewDirectoryBuilder is the host.BuilderFactory of the "dirhtml" builder.
func NewDirectoryBuilder() host.Builder {
	return &DirectoryBuilder{PageBuilder: newPageBuilder("dirhtml", true)}
}

func newPageBuilder(name string, directory bool) *PageBuilder {
	b := &PageBuilder{HTMLBuilder: &host.HTMLBuilder{
		BuilderName:    name,
		DirectoryStyle: directory,
		Layout:         pageLayout,
	}}
	b.PageContext = b.pageContext
	return b
}

// Init prepares the output directory and writes the stylesheet.
func (b *PageBuilder) Init(app *host.Application) error {
	if err := b.HTMLBuilder.Init(app); err != nil {
		return err
	}
	css, err := templateFS.ReadFile("templates/style.css")
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "missing embedded stylesheet").Build()
	}
	return b.WriteFile(StylesheetPath, css)
}

// IndexURL returns the URL of PEP 0 relative to docname's page.
func (b *PageBuilder) IndexURL(docname string) string {
	return b.PathToRoot(docname) + b.pageURL(IndexDocname)
}

func (b *PageBuilder) pageURL(docname string) string {
	if b.DirectoryStyle {
		return docname + "/"
	}
	return docname + ".html"
}

func (b *PageBuilder) pageContext(doc *host.Document) map[string]any {
	short := doc.Title
	if n, ok := doc.Metadata[parsing.MetaNumber].(int); ok {
		short = fmt.Sprintf("PEP %d", n)
	}
	return map[string]any{
		"Short":      short,
		"Stylesheet": b.PathToRoot(doc.Name) + StylesheetPath,
		"IndexURL":   b.IndexURL(doc.Name),
		"Contents":   doc.Metadata[parsing.MetaContents],
	}
}

// Finish writes index.html at the output root pointing at PEP 0, when PEP 0
// was part of the build.
func (b *PageBuilder) Finish(ctx context.Context, env *host.Environment) error {
	if err := b.HTMLBuilder.Finish(ctx, env); err != nil {
		return err
	}
	if _, ok := env.Document(IndexDocname); !ok {
		return nil
	}
	var buf bytes.Buffer
	if err := redirectLayout.Execute(&buf, map[string]string{"Target": b.pageURL(IndexDocname)}); err != nil {
		return errors.WrapError(err, errors.CategoryBuild, "redirect layout failed").Build()
	}
	return b.WriteFile("index.html", buf.Bytes())
}
