package parsing

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/pepbuilder/internal/doctree"
	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/host"
	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

const examplePEP = `PEP: 12
Title: Example
Author: Guido van Rossum <guido@python.org>,
        Barry Warsaw <barry@python.org>
Discussions-To: https://discuss.python.org/t/example/123
Status: Superseded
Type: Process
Requires: 1
Content-Type: text/markdown
Created: 05-Aug-2002
Post-History: [01-Jan-2020](https://mail.python.org/archives/list/python-dev@python.org/thread/X/), 02-Feb-2020
Superseded-By: 9

## Motivation

See PEP 1 and :pep:` + "`Style <8#names>`" + `.

### Detail

Inline :math:` + "`x^2`" + ` here.
`

func testSettings() *settings.Settings {
	s := settings.New(settings.Base())
	s.Merge(map[string]any{
		settings.KeyPEPReferences: true,
		settings.KeyRFCReferences: true,
		settings.KeyPEPURL:        "pep-%04d.html",
		settings.KeySourceURL:     "https://example.org/peps/",
	})
	return s
}

func parseFile(t *testing.T, name, content string) (*host.Document, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+Suffix)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	roles := map[string]host.Role{
		"pep":  PEPRole{},
		"math": host.RoleFunc(func(_ host.RoleContext, _ string, text string) (ast.Node, error) { return doctree.NewMathInline([]byte(text)), nil }),
	}
	pc := host.NewParseContext(context.Background(), name, path, testSettings(), roles)
	pc.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewParser(nil).Parse(pc, []byte(content))
}

func renderDoc(t *testing.T, doc *host.Document) string {
	t.Helper()
	app := host.New(host.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	out, err := app.RenderBody(doc)
	require.NoError(t, err)
	return string(out)
}

func TestSplitHeaders(t *testing.T) {
	src := []byte("PEP: 8\r\nTitle: Style\r\nAuthor: A,\r\n  B\r\n\r\nBody text\n")
	headers, body, err := SplitHeaders(src)
	require.NoError(t, err)
	require.Equal(t, Headers{
		{Name: "PEP", Value: "8"},
		{Name: "Title", Value: "Style"},
		{Name: "Author", Value: "A, B"},
	}, headers)
	require.Equal(t, "Body text\n", string(body))

	v, ok := headers.Get("author")
	require.True(t, ok)
	require.Equal(t, "A, B", v)
}

func TestSplitHeaders_Errors(t *testing.T) {
	for name, src := range map[string]string{
		"empty":        "",
		"continuation": "  folded\nPEP: 1\n",
		"no colon":     "PEP 1\n",
		"spaced name":  "Bad Name: x\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := SplitHeaders([]byte(src))
			require.Error(t, err)
		})
	}
}

func TestParseAuthors(t *testing.T) {
	tests := []struct {
		in   string
		want []Author
	}{
		{
			in: "Guido van Rossum <guido@python.org>, Barry Warsaw <barry@python.org>",
			want: []Author{
				{Name: "Guido van Rossum", Email: "guido@python.org"},
				{Name: "Barry Warsaw", Email: "barry@python.org"},
			},
		},
		{
			in:   "barry@python.org (Barry Warsaw)",
			want: []Author{{Name: "Barry Warsaw", Email: "barry@python.org"}},
		},
		{
			in:   "Fred L. Drake, Jr., Nick Coghlan",
			want: []Author{{Name: "Fred L. Drake, Jr."}, {Name: "Nick Coghlan"}},
		},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ParseAuthors(tt.in), tt.in)
	}
}

func TestParse_RequiredHeaders(t *testing.T) {
	for name, src := range map[string]string{
		"missing pep":   "Title: x\n\nbody\n",
		"bad number":    "PEP: eight\nTitle: x\n\nbody\n",
		"missing title": "PEP: 8\n\nbody\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseFile(t, "pep-0008", src)
			require.Error(t, err)
			require.True(t, errors.HasCategory(err, errors.CategoryParse))
		})
	}
}

func TestParse_Document(t *testing.T) {
	doc, err := parseFile(t, "pep-0012", examplePEP)
	require.NoError(t, err)
	require.Equal(t, "PEP 12 – Example", doc.Title)
	require.Equal(t, 12, doc.Metadata[MetaNumber])
	require.Equal(t, StatusSuperseded, doc.Metadata[MetaStatus])

	out := renderDoc(t, doc)
	for _, want := range []string{
		`<h1 class="page-title">PEP 12 – Example</h1>`,
		`<dl class="rfc2822 field-list simple">`,
		`<dt class="field-odd">Author<span class="colon">:</span></dt>`,
		`Guido van Rossum, Barry Warsaw</dd>`,
		`<a href="https://discuss.python.org/t/example/123">Discourse thread</a>`,
		`<abbr title="Replaced by another succeeding PEP">Superseded</abbr>`,
		`<abbr title="` + TypeTitles[TypeProcess] + `">Process</abbr>`,
		`<a href="pep-0001.html">1</a>`,
		`<a href="https://mail.python.org/archives/list/python-dev@python.org/thread/X/">01-Jan-2020</a>, 02-Feb-2020`,
		`This PEP has been superseded. See <a href="pep-0009.html">9</a>.`,
		`<a href="https://peps.python.org/pep-0001">PEP 1</a>`,
		`<a href="pep-0008.html#names">Style</a>`,
		`<span class="math">\(x^2\)</span>`,
		`<a class="reference internal" href="#motivation">Motivation</a>`,
		`Source: <a class="reference external" href="https://example.org/peps/pep-0012.md">`,
		`Last modified: `,
	} {
		require.Contains(t, out, want)
	}
	require.NotContains(t, out, "Content-Type")
	require.NotContains(t, out, "guido@python.org")

	contents, ok := doc.Metadata[MetaContents].([]doctree.ContentsEntry)
	require.True(t, ok)
	require.Equal(t, []doctree.ContentsEntry{
		{Level: 2, ID: "motivation", Title: "Motivation"},
		{Level: 3, ID: "detail", Title: "Detail"},
	}, contents)
}

func TestParse_InvalidRoleIsParseError(t *testing.T) {
	_, err := parseFile(t, "pep-0008", "PEP: 8\nTitle: x\n\nSee :pep:`eight`.\n")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryParse))
}

func TestPEPRole(t *testing.T) {
	rc := host.RoleContext{Settings: settings.New(map[string]any{settings.KeyPEPURL: "../pep-%04d"})}
	tests := []struct {
		text, label, dest string
	}{
		{"8", "PEP 8", "../pep-0008"},
		{"8#naming", "PEP 8", "../pep-0008#naming"},
		{"Style Guide <8>", "Style Guide", "../pep-0008"},
	}
	for _, tt := range tests {
		n, err := PEPRole{}.Resolve(rc, "pep", tt.text)
		require.NoError(t, err, tt.text)
		link, ok := n.(*ast.Link)
		require.True(t, ok)
		require.Equal(t, tt.dest, string(link.Destination))
		require.Equal(t, tt.label, string(link.FirstChild().(*ast.String).Value))
	}

	_, err := PEPRole{}.Resolve(rc, "pep", "-1")
	require.Error(t, err)
}

func TestBanner_Provisional(t *testing.T) {
	doc, err := parseFile(t, "pep-0020", "PEP: 20\nTitle: x\nStatus: Provisional\n\nbody\n")
	require.NoError(t, err)
	out := renderDoc(t, doc)
	require.Contains(t, out, `<div class="pep-banner status-provisional">`)
	require.Contains(t, out, "provisionally accepted")
}
