package inline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

func render(t *testing.T, s *settings.Settings, src string) string {
	t.Helper()
	md := goldmark.New(goldmark.WithParserOptions(
		parser.WithInlineParsers(util.Prioritized(NewReferenceParser(), Priority)),
	))
	pc := parser.NewContext()
	WithSettings(pc, s)
	root := md.Parser().Parse(text.NewReader([]byte(src)), parser.WithContext(pc))
	require.Empty(t, Errors(pc))

	var buf bytes.Buffer
	require.NoError(t, md.Renderer().Render(&buf, []byte(src), root))
	return buf.String()
}

func enabled() *settings.Settings {
	s := settings.New(settings.Base())
	s.Set(settings.KeyPEPReferences, true)
	s.Set(settings.KeyRFCReferences, true)
	return s
}

func TestReferenceParser_LinksBareReferences(t *testing.T) {
	out := render(t, enabled(), "See PEP 8 and RFC 2822 for details.\n")

	require.Contains(t, out, `<a href="https://peps.python.org/pep-0008">PEP 8</a>`)
	require.Contains(t, out, `<a href="https://datatracker.ietf.org/doc/html/rfc2822">RFC 2822</a>`)
}

func TestReferenceParser_FilenameForm(t *testing.T) {
	out := render(t, enabled(), "Superseded by pep-0440.txt.\n")

	require.Contains(t, out, `<a href="https://peps.python.org/pep-0440">pep-0440.txt</a>`)
}

func TestReferenceParser_WordBoundaries(t *testing.T) {
	out := render(t, enabled(), "PEPPER 8, xPEP 9 and PEP 10x stay text.\n")

	require.NotContains(t, out, "<a ")
}

func TestReferenceParser_LineHeadAndParentheses(t *testing.T) {
	out := render(t, enabled(), "PEP 8 opens the line\n(RFC 2822) and\tPEP 20.\n")

	require.Contains(t, out, `<p><a href="https://peps.python.org/pep-0008">PEP 8</a> opens the line`)
	require.Contains(t, out, `(<a href="https://datatracker.ietf.org/doc/html/rfc2822">RFC 2822</a>) and`+"\t"+`<a href="https://peps.python.org/pep-0020">PEP 20</a>.`)
}

func TestReferenceParser_SkipsLinkLabels(t *testing.T) {
	out := render(t, enabled(), "[see PEP 8](https://example.com/) here\n")

	require.Contains(t, out, `<a href="https://example.com/">see PEP 8</a>`)
	require.NotContains(t, out, "peps.python.org")
}

func TestReferenceParser_DisabledBySettings(t *testing.T) {
	out := render(t, settings.New(settings.Base()), "PEP 8 and RFC 2822.\n")

	require.NotContains(t, out, "<a ")
}

func TestReferenceParser_UsesFileTemplate(t *testing.T) {
	s := enabled()
	s.Set(settings.KeyPEPBaseURL, "/peps/")
	s.Set(settings.KeyPEPFileURLTemplate, "pep-%03d.html")

	out := render(t, s, "PEP 8\n")
	require.Contains(t, out, `<a href="/peps/pep-008.html">PEP 8</a>`)
}

func TestMatch_Number(t *testing.T) {
	m := NewMatch("PEP 12", map[string]string{"pepnum2": "12"})

	n, err := m.Number("pepnum1", "pepnum2")
	require.NoError(t, err)
	require.Equal(t, 12, n)

	_, err = m.Number("rfcnum")
	require.Error(t, err)
}

func TestNewReference(t *testing.T) {
	link := NewReference("PEP 1", "pep-0001.html")

	require.Equal(t, "pep-0001.html", string(link.Destination))
	require.Equal(t, ast.KindString, link.FirstChild().Kind())
}
