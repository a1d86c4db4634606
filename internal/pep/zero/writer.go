package zero

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/pepbuilder/internal/pep/parsing"
)

// ReservedNumbers lists PEP numbers set aside without a document.
var ReservedNumbers = []struct {
	Number int
	Holder string
}{
	{801, "Warsaw"},
}

const header = `PEP: 0
Title: Index of Python Enhancement Proposals (PEPs)
Author: The PEP Editors
Status: Active
Type: Informational
Content-Type: text/markdown
Created: 13-Jul-2000

`

const intro = `This PEP contains the index of all Python Enhancement Proposals,
known as PEPs. PEP numbers are assigned by the PEP editors, and once
assigned are never changed. The version control history of the PEP
texts represent their historical record.
`

// Render returns the Markdown source of PEP 0 for peps, which must be sorted
// by number.
func Render(peps []*PEP) (string, error) {
	cats, err := SortPEPs(peps)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("## Introduction\n\n")
	b.WriteString(intro)
	b.WriteString("\nThe process of creating and maintaining PEPs is described in :pep:`1`.\n")

	b.WriteString("\n## Index by Category\n")
	for _, s := range cats.Sections() {
		fmt.Fprintf(&b, "\n### %s\n\n", s.Title)
		writeTable(&b, s.PEPs)
	}

	b.WriteString("\n## Numerical Index\n\n")
	writeTable(&b, peps)

	b.WriteString("\n## Reserved PEP Numbers\n\n")
	b.WriteString("| PEP | Title | Authors |\n|---|---|---|\n")
	for _, r := range ReservedNumbers {
		fmt.Fprintf(&b, "| %d | RESERVED | %s |\n", r.Number, r.Holder)
	}

	b.WriteString("\n## PEP Types Key\n\n")
	for _, t := range []string{parsing.TypeInformational, parsing.TypeProcess, parsing.TypeStandards} {
		fmt.Fprintf(&b, "- **%s**: *%s*: %s\n", t[:1], t, parsing.TypeTitles[t])
	}

	b.WriteString("\n## PEP Status Key\n\n")
	for _, s := range []string{
		parsing.StatusAccepted, parsing.StatusActive, parsing.StatusDeferred, parsing.StatusDraft,
		parsing.StatusFinal, parsing.StatusProvisional, parsing.StatusRejected,
		parsing.StatusSuperseded, parsing.StatusWithdrawn,
	} {
		code := s[:1]
		if s == parsing.StatusDraft || s == parsing.StatusActive {
			code = "&lt;No letter&gt;"
		}
		fmt.Fprintf(&b, "- **%s**: *%s*: %s\n", code, s, parsing.StatusTitles[s])
	}

	b.WriteString("\n## Authors/Owners\n\n")
	b.WriteString("| Name | Email Address |\n|---|---|\n")
	for _, a := range AuthorIndex(peps) {
		fmt.Fprintf(&b, "| %s | %s |\n", cell(a.LastFirst), cell(obfuscate(a.Email)))
	}
	return b.String(), nil
}

func writeTable(b *strings.Builder, peps []*PEP) {
	if len(peps) == 0 {
		b.WriteString("None.\n")
		return
	}
	b.WriteString("| | PEP | PEP Title | Authors |\n|---|---|---|---|\n")
	for _, p := range peps {
		fmt.Fprintf(b, "| %s | :pep:`%d` | %s | %s |\n", p.ShortCode(), p.Number, cell(p.Title), cell(p.AuthorNicks()))
	}
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func obfuscate(email string) string {
	return strings.Replace(email, "@", " at ", 1)
}
