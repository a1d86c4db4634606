// Package html renders PEP documents: a goldmark translator overriding a few
// node kinds and the file and directory page builders.
package html

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/renderer"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/pepbuilder/internal/host"
)

// Translator overrides heading, link and table output for PEP pages.
type Translator struct {
	doc *host.Document
}

// NewTranslator is a host.TranslatorFactory.
func NewTranslator(doc *host.Document) renderer.NodeRenderer {
	return &Translator{doc: doc}
}

// RegisterFuncs implements renderer.NodeRenderer.
func (t *Translator) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindHeading, t.renderHeading)
	reg.Register(ast.KindLink, t.renderLink)
	reg.Register(east.KindTable, t.renderTable)
}

func (t *Translator) renderHeading(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Heading)
	if entering {
		_, _ = fmt.Fprintf(w, "<h%d", n.Level)
		if n.Attributes() != nil {
			ghtml.RenderAttributes(w, n, ghtml.HeadingAttributeFilter)
		}
		_ = w.WriteByte('>')
		return ast.WalkContinue, nil
	}
	if id, ok := n.AttributeString("id"); ok {
		if b, ok := id.([]byte); ok && len(b) > 0 {
			_, _ = fmt.Fprintf(w, `<a class="headerlink" href="#%s" title="Link to this heading">¶</a>`, util.EscapeHTML(b))
		}
	}
	_, _ = fmt.Fprintf(w, "</h%d>\n", n.Level)
	return ast.WalkContinue, nil
}

func (t *Translator) renderLink(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Link)
	if !entering {
		_, _ = w.WriteString("</a>")
		return ast.WalkContinue, nil
	}
	class := "reference internal"
	if isExternal(n.Destination) {
		class = "reference external"
	}
	_, _ = fmt.Fprintf(w, `<a class="%s" href="`, class)
	_, _ = w.Write(util.EscapeHTML(util.URLEscape(n.Destination, true)))
	_ = w.WriteByte('"')
	if len(n.Title) > 0 {
		_, _ = w.WriteString(` title="`)
		_, _ = w.Write(util.EscapeHTML(n.Title))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
	return ast.WalkContinue, nil
}

func (t *Translator) renderTable(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(`<table class="docutils">` + "\n")
	} else {
		_, _ = w.WriteString("</table>\n")
	}
	return ast.WalkContinue, nil
}

func isExternal(dest []byte) bool {
	return bytes.Contains(dest, []byte("://")) || bytes.HasPrefix(dest, []byte("mailto:"))
}
