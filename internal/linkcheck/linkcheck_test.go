package linkcheck

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testBase = "https://peps.python.org/"

func writePage(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte("<html><body>"+body+"</body></html>"), 0o600))
}

func TestExtractPageFromReader(t *testing.T) {
	src := `<html><head><link rel="stylesheet" href="_static/style.css"></head><body>
<h2 id="abstract">Abstract<a class="headerlink" href="#abstract">¶</a></h2>
<a name="legacy"></a>
<a href="pep-0008.html">PEP 8</a>
<a href="https://github.com/python/peps">source</a>
<a href="mailto:guido@python.org">mail</a>
<img src="logo.png" alt="logo">
</body></html>`

	page, err := ExtractPageFromReader(strings.NewReader(src), testBase)
	require.NoError(t, err)
	require.True(t, page.HasAnchor("abstract"))
	require.True(t, page.HasAnchor("legacy"))
	require.False(t, page.HasAnchor("missing"))

	byURL := map[string]*Link{}
	for _, l := range page.Links {
		byURL[l.URL] = l
	}
	require.Len(t, byURL, 6)
	require.Equal(t, "PEP 8", byURL["pep-0008.html"].Text)
	require.True(t, byURL["pep-0008.html"].IsInternal)
	require.True(t, byURL["#abstract"].IsInternal)
	require.False(t, byURL["https://github.com/python/peps"].IsInternal)
	require.False(t, byURL["mailto:guido@python.org"].IsInternal)
	require.Equal(t, "img", byURL["logo.png"].Tag)
	require.Equal(t, "stylesheet", byURL["_static/style.css"].Text)
}

func TestShouldVerifyLink(t *testing.T) {
	tests := []struct {
		link *Link
		want bool
	}{
		{&Link{URL: "pep-0008.html", IsInternal: true}, true},
		{&Link{URL: "#sec", IsInternal: true}, true},
		{&Link{URL: "api/peps.json", IsInternal: true}, false},
		{&Link{URL: "https://example.com/", IsInternal: false}, false},
		{&Link{URL: "", IsInternal: true}, false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ShouldVerifyLink(tt.link), tt.link.URL)
	}
}

func TestChecker_FileLayout(t *testing.T) {
	out := t.TempDir()
	writePage(t, out, "index.html", `<a href="pep-0000.html">index</a>`)
	writePage(t, out, "pep-0000.html", `<a href="pep-0008.html#intro">8</a><a href="pep-0009.html">9</a>`)
	writePage(t, out, "pep-0008.html", `<h2 id="intro">Intro</h2><a href="#nowhere">x</a><a href="/pep-0000.html">0</a>`)

	report, err := NewChecker(out, testBase).Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.Pages)
	require.Equal(t, 5, report.Links)
	require.False(t, report.OK())
	require.Equal(t, []BrokenLink{
		{Page: "pep-0000.html", URL: "pep-0009.html", Line: 5, Reason: ReasonMissingFile},
		{Page: "pep-0008.html", URL: "#nowhere", Line: 5, Reason: ReasonMissingAnchor},
	}, report.Broken)
}

func TestChecker_DirectoryLayout(t *testing.T) {
	out := t.TempDir()
	writePage(t, out, "pep-0000/index.html", `<a href="../pep-0008#intro">8</a><a href="../pep-0008/">8</a>`)
	writePage(t, out, "pep-0008/index.html", `<h2 id="intro">Intro</h2><a href="https://peps.python.org/pep-0000/">abs</a>`)

	report, err := NewChecker(out, testBase).Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.Links)
	require.True(t, report.OK(), "%+v", report.Broken)
}

func TestChecker_OutsideOutput(t *testing.T) {
	out := t.TempDir()
	writePage(t, out, "pep-0001.html", `<a href="../../etc/passwd">x</a>`)

	report, err := NewChecker(out, testBase).Check(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Broken, 1)
	require.Equal(t, ReasonOutsideOutput, report.Broken[0].Reason)
}
