package zero

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/pep/parsing"
)

func headersFor(number int, status, typ, title string) parsing.Headers {
	return parsing.Headers{
		{Name: "PEP", Value: fmt.Sprint(number)},
		{Name: "Title", Value: title},
		{Name: "Author", Value: "Guido van Rossum <guido@python.org>"},
		{Name: "Status", Value: status},
		{Name: "Type", Value: typ},
		{Name: "Created", Value: "01-Jan-2001"},
	}
}

func mustPEP(t *testing.T, number int, status, typ, title string) *PEP {
	t.Helper()
	p, err := NewPEP(fmt.Sprintf("pep-%04d.md", number), headersFor(number, status, typ, title))
	require.NoError(t, err)
	return p
}

func writePEP(t *testing.T, dir string, number int, status, typ, title, author string) {
	t.Helper()
	src := fmt.Sprintf("PEP: %d\nTitle: %s\nAuthor: %s\nStatus: %s\nType: %s\nCreated: 01-Jan-2001\n\nBody.\n",
		number, title, author, status, typ)
	require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("pep-%04d.md", number)), []byte(src), 0o644))
}

func TestNewPEP_Validation(t *testing.T) {
	tests := []struct {
		name    string
		headers parsing.Headers
	}{
		{"unknown status", headersFor(1, "Pending", parsing.TypeProcess, "x")},
		{"unknown type", headersFor(1, parsing.StatusDraft, "Standards", "x")},
		{"active standards", headersFor(1, parsing.StatusActive, parsing.TypeStandards, "x")},
		{"bad number", append(parsing.Headers{{Name: "PEP", Value: "one"}}, headersFor(1, parsing.StatusDraft, parsing.TypeProcess, "x")[1:]...)},
		{"missing created", headersFor(1, parsing.StatusDraft, parsing.TypeProcess, "x")[:5]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPEP("pep-0001.md", tt.headers)
			require.Error(t, err)
			require.True(t, errors.HasCategory(err, errors.CategoryValidation))
		})
	}
}

func TestPEP_ShortCode(t *testing.T) {
	require.Equal(t, "SF", mustPEP(t, 1, parsing.StatusFinal, parsing.TypeStandards, "x").ShortCode())
	require.Equal(t, "P", mustPEP(t, 1, parsing.StatusActive, parsing.TypeProcess, "x").ShortCode())
	require.Equal(t, "I", mustPEP(t, 1, parsing.StatusDraft, parsing.TypeInformational, "x").ShortCode())
}

func TestNewAuthor(t *testing.T) {
	tests := []struct {
		name, nick, lastFirst, sortKey string
	}{
		{"Guido van Rossum", "van Rossum", "van Rossum, Guido", "rossum guido"},
		{"Martin von Löwis", "von Löwis", "von Löwis, Martin", "lowis martin"},
		{"Fred L. Drake, Jr.", "Drake", "Drake, Fred L., Jr.", "drake fred l."},
		{"Zeus", "Zeus", "Zeus", "zeus"},
	}
	for _, tt := range tests {
		a := NewAuthor(parsing.Author{Name: tt.name})
		require.Equal(t, tt.nick, a.Nick, tt.name)
		require.Equal(t, tt.lastFirst, a.LastFirst, tt.name)
		require.Equal(t, tt.sortKey, a.SortKey, tt.name)
	}
}

func TestSortPEPs(t *testing.T) {
	peps := []*PEP{
		mustPEP(t, 1, parsing.StatusActive, parsing.TypeProcess, "Purpose"),
		mustPEP(t, 2, parsing.StatusWithdrawn, parsing.TypeProcess, "Old process"),
		mustPEP(t, 3, parsing.StatusFinal, parsing.TypeProcess, "Done process"),
		mustPEP(t, 4, parsing.StatusDraft, parsing.TypeStandards, "New thing"),
		mustPEP(t, 5, parsing.StatusDeferred, parsing.TypeStandards, "Later"),
		mustPEP(t, 6, parsing.StatusRejected, parsing.TypeStandards, "No"),
		mustPEP(t, 7, parsing.StatusFinal, parsing.TypeInformational, "Python 2.7 Release Schedule"),
		mustPEP(t, 8, parsing.StatusActive, parsing.TypeInformational, "Style Guide"),
		mustPEP(t, 9, parsing.StatusProvisional, parsing.TypeStandards, "Maybe"),
		mustPEP(t, 10, parsing.StatusAccepted, parsing.TypeStandards, "Yes"),
		mustPEP(t, 11, parsing.StatusFinal, parsing.TypeStandards, "Shipped"),
		mustPEP(t, 12, parsing.StatusSuperseded, parsing.TypeStandards, "Replaced"),
	}
	c, err := SortPEPs(peps)
	require.NoError(t, err)

	numbers := func(ps []*PEP) []int {
		var out []int
		for _, p := range ps {
			out = append(out, p.Number)
		}
		return out
	}
	require.Equal(t, []int{1}, numbers(c.Meta))
	require.Equal(t, []int{8}, numbers(c.Info))
	require.Equal(t, []int{9}, numbers(c.Provisional))
	require.Equal(t, []int{10}, numbers(c.Accepted))
	require.Equal(t, []int{4}, numbers(c.Open))
	require.Equal(t, []int{11}, numbers(c.Finished))
	require.Equal(t, []int{3, 7}, numbers(c.Historical))
	require.Equal(t, []int{5}, numbers(c.Deferred))
	require.Equal(t, []int{2, 6, 12}, numbers(c.Dead))
}

func TestCollect_DuplicateNumber(t *testing.T) {
	dir := t.TempDir()
	writePEP(t, dir, 1, parsing.StatusActive, parsing.TypeProcess, "Purpose", "Barry Warsaw")
	src, err := os.ReadFile(filepath.Join(dir, "pep-0001.md"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pep-0002.md"), src, 0o644))

	_, err = Collect(dir)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestGenerate(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	writePEP(t, src, 1, parsing.StatusActive, parsing.TypeProcess, "PEP Purpose and Guidelines", "Barry Warsaw <barry@python.org>")
	writePEP(t, src, 8, parsing.StatusActive, parsing.TypeProcess, "Style Guide for Python Code", "Guido van Rossum <guido@python.org>, Barry Warsaw")

	res, err := NewGenerator().Generate(src, out)
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Len(t, res.PEPs, 2)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	content := string(data)
	require.True(t, strings.HasPrefix(content, "PEP: 0\nTitle: Index of Python Enhancement Proposals (PEPs)\n"))
	require.Contains(t, content, "### Meta-PEPs (PEPs about PEPs or Processes)")
	require.Contains(t, content, "| P | :pep:`8` | Style Guide for Python Code | van Rossum, Warsaw |")
	require.Contains(t, content, "| van Rossum, Guido | guido at python.org |")
	require.Contains(t, content, "| Warsaw, Barry | barry at python.org |")
	require.Contains(t, content, "| 801 | RESERVED | Warsaw |")

	again, err := NewGenerator().Generate(src, out)
	require.NoError(t, err)
	require.False(t, again.Changed)

	raw, err := os.ReadFile(filepath.Join(out, "api", "peps.json"))
	require.NoError(t, err)
	var api map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &api))
	require.Equal(t, "Style Guide for Python Code", api["8"]["title"])
	require.Equal(t, "Guido van Rossum, Barry Warsaw", api["8"]["authors"])
	require.Equal(t, "https://peps.python.org/pep-0008/", api["8"]["url"])
	require.Nil(t, api["8"]["resolution"])
}
