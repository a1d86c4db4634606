package doctree

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// HTMLRenderer renders the doctree nodes. Math nodes are delegated to the
// configured MathRenderer.
type HTMLRenderer struct {
	math MathRenderer
}

// NewHTMLRenderer returns a renderer using math for math nodes. A zero
// MathRenderer falls back to DefaultMathRenderer.
func NewHTMLRenderer(math MathRenderer) *HTMLRenderer {
	if math.Inline.Visit == nil || math.Block.Visit == nil {
		math = DefaultMathRenderer()
	}
	return &HTMLRenderer{math: math}
}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *HTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMathInline, pairFunc(r.math.Inline))
	reg.Register(KindMathBlock, pairFunc(r.math.Block))
	reg.Register(KindFieldList, r.renderFieldList)
	reg.Register(KindField, r.renderField)
	reg.Register(KindBanner, r.renderBanner)
	reg.Register(KindContents, r.renderContents)
	reg.Register(KindFooter, r.renderFooter)
	reg.Register(KindAbbr, r.renderAbbr)
}

func pairFunc(p MathRendererPair) renderer.NodeRendererFunc {
	return func(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			return p.Visit(w, source, n)
		}
		if p.Depart != nil {
			p.Depart(w, source, n)
		}
		return ast.WalkContinue, nil
	}
}

func (r *HTMLRenderer) renderFieldList(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	fl := n.(*FieldList)
	if entering {
		_, _ = fmt.Fprintf(w, "<dl class=\"%s\">\n", util.EscapeHTML([]byte(fl.Class)))
	} else {
		_, _ = w.WriteString("</dl>\n")
	}
	return ast.WalkContinue, nil
}

func (r *HTMLRenderer) renderField(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	f := n.(*Field)
	if !entering {
		_, _ = w.WriteString("</dd>\n")
		return ast.WalkContinue, nil
	}
	parity := "odd"
	index := 0
	for s := f.PreviousSibling(); s != nil; s = s.PreviousSibling() {
		index++
	}
	if index%2 == 1 {
		parity = "even"
	}
	_, _ = fmt.Fprintf(w, "<dt class=\"field-%s\">%s<span class=\"colon\">:</span></dt>\n<dd class=\"field-%s\">",
		parity, util.EscapeHTML([]byte(f.Name)), parity)
	return ast.WalkContinue, nil
}

func (r *HTMLRenderer) renderBanner(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	b := n.(*Banner)
	if entering {
		_, _ = fmt.Fprintf(w, "<div class=\"%s\">\n<p>", util.EscapeHTML([]byte(b.Class)))
	} else {
		_, _ = w.WriteString("</p>\n</div>\n")
	}
	return ast.WalkContinue, nil
}

func (r *HTMLRenderer) renderContents(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	c := n.(*Contents)
	if len(c.Entries) == 0 {
		return ast.WalkSkipChildren, nil
	}
	_, _ = w.WriteString("<nav id=\"pep-contents\" class=\"contents\">\n<p class=\"topic-title\">Table of Contents</p>\n")
	writeContentsList(w, c.Entries)
	_, _ = w.WriteString("</nav>\n")
	return ast.WalkSkipChildren, nil
}

// writeContentsList writes entries as nested lists. A heading more than one
// level deeper than its predecessor is nested a single level.
func writeContentsList(w util.BufWriter, entries []ContentsEntry) {
	base := entries[0].Level
	for _, e := range entries {
		base = min(base, e.Level)
	}
	_, _ = w.WriteString("<ul>\n")
	prev := 0
	for i, e := range entries {
		level := min(e.Level-base, prev+1)
		if i == 0 {
			level = 0
		}
		if i > 0 {
			if level > prev {
				_, _ = w.WriteString("\n<ul>\n")
			} else {
				_, _ = w.WriteString("</li>\n")
				for l := prev; l > level; l-- {
					_, _ = w.WriteString("</ul>\n</li>\n")
				}
			}
		}
		_, _ = fmt.Fprintf(w, "<li><a class=\"reference internal\" href=\"#%s\">%s</a>",
			util.URLEscape([]byte(e.ID), false), util.EscapeHTML([]byte(e.Title)))
		prev = level
	}
	_, _ = w.WriteString("</li>\n")
	for l := prev; l > 0; l-- {
		_, _ = w.WriteString("</ul>\n</li>\n")
	}
	_, _ = w.WriteString("</ul>\n")
}

func (r *HTMLRenderer) renderFooter(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	f := n.(*Footer)
	var b strings.Builder
	b.WriteString("<div class=\"pep-footer\">\n")
	if f.SourceURL != "" {
		fmt.Fprintf(&b, "<p>Source: <a class=\"reference external\" href=\"%s\">%s</a></p>\n",
			util.URLEscape([]byte(f.SourceURL), false), util.EscapeHTML([]byte(f.SourceURL)))
	}
	if f.LastModified != "" {
		if f.HistoryURL != "" {
			fmt.Fprintf(&b, "<p>Last modified: <a class=\"reference external\" href=\"%s\">%s</a></p>\n",
				util.URLEscape([]byte(f.HistoryURL), false), util.EscapeHTML([]byte(f.LastModified)))
		} else {
			fmt.Fprintf(&b, "<p>Last modified: %s</p>\n", util.EscapeHTML([]byte(f.LastModified)))
		}
	}
	b.WriteString("</div>\n")
	_, _ = w.WriteString(b.String())
	return ast.WalkSkipChildren, nil
}

func (r *HTMLRenderer) renderAbbr(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		a := n.(*Abbr)
		_, _ = fmt.Fprintf(w, "<abbr title=\"%s\">%s</abbr>", util.EscapeHTML([]byte(a.Title)), util.EscapeHTML([]byte(a.Label)))
	}
	return ast.WalkSkipChildren, nil
}
