// Package zero generates PEP 0, the index of all PEPs, and its JSON twin
// api/peps.json.
package zero

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/pep/parsing"
)

var knownStatuses = map[string]bool{
	parsing.StatusAccepted:    true,
	parsing.StatusActive:      true,
	parsing.StatusAprilFool:   true,
	parsing.StatusDeferred:    true,
	parsing.StatusDraft:       true,
	parsing.StatusFinal:       true,
	parsing.StatusProvisional: true,
	parsing.StatusRejected:    true,
	parsing.StatusSuperseded:  true,
	parsing.StatusWithdrawn:   true,
}

var knownTypes = map[string]bool{
	parsing.TypeInformational: true,
	parsing.TypeProcess:       true,
	parsing.TypeStandards:     true,
}

var requiredHeaders = []string{"PEP", "Title", "Author", "Status", "Type", "Created"}

// PEP is the index record of one PEP.
type PEP struct {
	Number        int
	Title         string
	Status        string
	Type          string
	Authors       []Author
	Created       string
	PythonVersion string
	Topic         string
	Requires      string
	Replaces      string
	SupersededBy  string
	Resolution    string
	DiscussionsTo string
	PostHistory   string
	Filename      string
}

// NewPEP validates headers read from filename and returns the record.
func NewPEP(filename string, headers parsing.Headers) (*PEP, error) {
	base := filepath.Base(filename)
	for _, name := range requiredHeaders {
		if headers.Value(name) == "" {
			return nil, pepError(base, 0, fmt.Sprintf("missing %s header", name))
		}
	}
	number, err := strconv.Atoi(headers.Value("PEP"))
	if err != nil {
		return nil, pepError(base, 0, "PEP number is not an integer")
	}

	p := &PEP{
		Number:        number,
		Title:         headers.Value("Title"),
		Status:        headers.Value("Status"),
		Type:          headers.Value("Type"),
		Created:       headers.Value("Created"),
		PythonVersion: headers.Value("Python-Version"),
		Topic:         headers.Value("Topic"),
		Requires:      headers.Value("Requires"),
		Replaces:      headers.Value("Replaces"),
		SupersededBy:  headers.Value("Superseded-By"),
		Resolution:    headers.Value("Resolution"),
		DiscussionsTo: headers.Value("Discussions-To"),
		PostHistory:   headers.Value("Post-History"),
		Filename:      base,
	}
	if !knownStatuses[p.Status] {
		return nil, pepError(base, number, fmt.Sprintf("%q is not a valid Status", p.Status))
	}
	if !knownTypes[p.Type] {
		return nil, pepError(base, number, fmt.Sprintf("%q is not a valid Type", p.Type))
	}
	if p.Status == parsing.StatusActive && p.Type != parsing.TypeProcess && p.Type != parsing.TypeInformational {
		return nil, pepError(base, number, "only Process and Informational PEPs may have Active status")
	}
	for _, a := range parsing.ParseAuthors(headers.Value("Author")) {
		p.Authors = append(p.Authors, NewAuthor(a))
	}
	if len(p.Authors) == 0 {
		return nil, pepError(base, number, "no authors found")
	}
	return p, nil
}

// ShortCode is the two-letter type/status marker of the index tables.
// Draft and Active PEPs show only their type.
func (p *PEP) ShortCode() string {
	status := p.Status[:1]
	if p.Status == parsing.StatusDraft || p.Status == parsing.StatusActive {
		status = " "
	}
	return strings.TrimRight(p.Type[:1]+status, " ")
}

// AuthorNicks returns the surnames of the authors, comma separated.
func (p *PEP) AuthorNicks() string {
	nicks := make([]string, len(p.Authors))
	for i, a := range p.Authors {
		nicks[i] = a.Nick
	}
	return strings.Join(nicks, ", ")
}

func pepError(filename string, number int, msg string) error {
	b := errors.ValidationError(msg).WithContext("file", filename)
	if number > 0 {
		b = b.WithContext("pep", number)
	}
	return b.Build()
}
