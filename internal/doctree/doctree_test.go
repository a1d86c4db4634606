package doctree

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

func newMarkdown(math MathRenderer) goldmark.Markdown {
	return goldmark.New(
		goldmark.WithParserOptions(parser.WithASTTransformers(util.Prioritized(MathBlockTransformer{}, 100))),
		goldmark.WithRendererOptions(renderer.WithNodeRenderers(util.Prioritized(NewHTMLRenderer(math), 500))),
	)
}

func TestMathBlockTransformer_ReplacesMathFence(t *testing.T) {
	var buf bytes.Buffer
	src := []byte("Intro\n\n```math\na^2 < b\n```\n\n```python\nx = 1\n```\n")
	require.NoError(t, newMarkdown(MathRenderer{}).Convert(src, &buf))

	out := buf.String()
	require.Contains(t, out, "<div class=\"math\">\n\\[a^2 &lt; b\\]\n</div>")
	require.Contains(t, out, "<code class=\"language-python\">")
}

func TestHTMLRenderer_DelegatesMathToPair(t *testing.T) {
	var departed int
	custom := MathRenderer{
		Name: "custom",
		Inline: MathRendererPair{
			Visit: func(w util.BufWriter, _ []byte, n ast.Node) (ast.WalkStatus, error) {
				_, _ = w.WriteString("[m]")
				return ast.WalkContinue, nil
			},
			Depart: func(util.BufWriter, []byte, ast.Node) { departed++ },
		},
		Block: MathRendererPair{Visit: VisitMathBlock},
	}

	doc := ast.NewDocument()
	p := ast.NewParagraph()
	p.AppendChild(p, NewMathInline([]byte("x")))
	doc.AppendChild(doc, p)

	var buf bytes.Buffer
	require.NoError(t, newMarkdown(custom).Renderer().Render(&buf, nil, doc))
	require.Equal(t, "<p>[m]</p>\n", buf.String())
	require.Equal(t, 1, departed)
}

func TestHTMLRenderer_FieldList(t *testing.T) {
	doc := ast.NewDocument()
	fl := NewFieldList("rfc2822 field-list simple")
	for _, name := range []string{"Author", "Status"} {
		f := NewField(name)
		f.AppendChild(f, ast.NewString([]byte("value & more")))
		fl.AppendChild(fl, f)
	}
	doc.AppendChild(doc, fl)

	var buf bytes.Buffer
	require.NoError(t, newMarkdown(MathRenderer{}).Renderer().Render(&buf, nil, doc))
	out := buf.String()
	require.Contains(t, out, `<dl class="rfc2822 field-list simple">`)
	require.Contains(t, out, `<dt class="field-odd">Author<span class="colon">:</span></dt>`)
	require.Contains(t, out, `<dt class="field-even">Status<span class="colon">:</span></dt>`)
	require.Contains(t, out, "value &amp; more</dd>")
}

func TestHTMLRenderer_ContentsNesting(t *testing.T) {
	doc := ast.NewDocument()
	doc.AppendChild(doc, NewContents([]ContentsEntry{
		{Level: 2, ID: "abstract", Title: "Abstract"},
		{Level: 3, ID: "details", Title: "Details"},
		{Level: 2, ID: "copyright", Title: "Copyright"},
	}))

	var buf bytes.Buffer
	require.NoError(t, newMarkdown(MathRenderer{}).Renderer().Render(&buf, nil, doc))
	out := buf.String()
	require.Contains(t, out, `<li><a class="reference internal" href="#abstract">Abstract</a>`+"\n<ul>\n"+
		`<li><a class="reference internal" href="#details">Details</a></li>`+"\n</ul>\n</li>\n"+
		`<li><a class="reference internal" href="#copyright">Copyright</a></li>`+"\n</ul>\n")
	require.Equal(t, bytes.Count(buf.Bytes(), []byte("<ul>")), bytes.Count(buf.Bytes(), []byte("</ul>")))
}

func TestHTMLRenderer_Footer(t *testing.T) {
	doc := ast.NewDocument()
	doc.AppendChild(doc, &Footer{
		SourceURL:    "https://example.org/pep-0008.md",
		HistoryURL:   "https://example.org/commits/pep-0008.md",
		LastModified: "2024-01-02 03:04:05 UTC",
	})

	var buf bytes.Buffer
	require.NoError(t, newMarkdown(MathRenderer{}).Renderer().Render(&buf, nil, doc))
	out := buf.String()
	require.Contains(t, out, `Source: <a class="reference external" href="https://example.org/pep-0008.md">`)
	require.Contains(t, out, `Last modified: <a class="reference external" href="https://example.org/commits/pep-0008.md">2024-01-02 03:04:05 UTC</a>`)
}

func TestHTMLRenderer_Abbr(t *testing.T) {
	doc := ast.NewDocument()
	para := ast.NewParagraph()
	para.AppendChild(para, NewAbbr("Final", "Accepted & complete"))
	doc.AppendChild(doc, para)

	var buf bytes.Buffer
	require.NoError(t, newMarkdown(MathRenderer{}).Renderer().Render(&buf, nil, doc))
	require.Equal(t, "<p><abbr title=\"Accepted &amp; complete\">Final</abbr></p>\n", buf.String())
}
