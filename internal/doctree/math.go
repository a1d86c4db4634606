package doctree

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// VisitFunc renders the opening of a node. Returning ast.WalkSkipChildren
// stops the renderer from descending into the node.
type VisitFunc func(w util.BufWriter, source []byte, n ast.Node) (ast.WalkStatus, error)

// DepartFunc renders the closing of a node.
type DepartFunc func(w util.BufWriter, source []byte, n ast.Node)

// MathRendererPair is the visit/depart pair for one kind of math node.
type MathRendererPair struct {
	Visit  VisitFunc
	Depart DepartFunc
}

// MathRenderer selects how inline and block math nodes are written.
type MathRenderer struct {
	Name   string
	Inline MathRendererPair
	Block  MathRendererPair
}

// DefaultMathRenderer writes math with VisitMath and VisitMathBlock and no depart output.
func DefaultMathRenderer() MathRenderer {
	return MathRenderer{
		Name:   "html",
		Inline: MathRendererPair{Visit: VisitMath},
		Block:  MathRendererPair{Visit: VisitMathBlock},
	}
}

// VisitMath writes inline math as escaped LaTeX in \( \) delimiters.
func VisitMath(w util.BufWriter, _ []byte, n ast.Node) (ast.WalkStatus, error) {
	m, ok := n.(*MathInline)
	if !ok {
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(`<span class="math">\(`)
	_, _ = w.Write(util.EscapeHTML(m.Literal))
	_, _ = w.WriteString(`\)</span>`)
	return ast.WalkSkipChildren, nil
}

// VisitMathBlock writes display math as escaped LaTeX in \[ \] delimiters.
func VisitMathBlock(w util.BufWriter, _ []byte, n ast.Node) (ast.WalkStatus, error) {
	m, ok := n.(*MathBlock)
	if !ok {
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString("<div class=\"math\">\n\\[")
	_, _ = w.Write(util.EscapeHTML(bytes.TrimSpace(m.Literal)))
	_, _ = w.WriteString("\\]\n</div>\n")
	return ast.WalkSkipChildren, nil
}

// MathBlockTransformer replaces fenced code blocks whose info string is
// "math" with MathBlock nodes.
type MathBlockTransformer struct{}

func (MathBlockTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	var fences []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fcb, ok := n.(*ast.FencedCodeBlock); ok && string(fcb.Language(source)) == "math" {
			fences = append(fences, fcb)
		}
		return ast.WalkContinue, nil
	})

	for _, fcb := range fences {
		var buf bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}
		parent := fcb.Parent()
		parent.ReplaceChild(parent, fcb, NewMathBlock(buf.Bytes()))
	}
}
