package zero

import (
	"fmt"
	"sort"
	"strings"

	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/pep/parsing"
)

var deadStatuses = map[string]bool{
	parsing.StatusRejected:   true,
	parsing.StatusWithdrawn:  true,
	parsing.StatusSuperseded: true,
	parsing.StatusAprilFool:  true,
}

// Categories groups PEPs for the "Index by Category" section.
type Categories struct {
	Meta        []*PEP
	Info        []*PEP
	Provisional []*PEP
	Accepted    []*PEP
	Open        []*PEP
	Finished    []*PEP
	Historical  []*PEP
	Deferred    []*PEP
	Dead        []*PEP
}

// SortPEPs distributes peps into categories. Status checks take precedence
// over type checks in a fixed order; a PEP matching no rule is an error.
func SortPEPs(peps []*PEP) (*Categories, error) {
	c := &Categories{}
	for _, p := range peps {
		switch {
		case p.Status == parsing.StatusDraft:
			c.Open = append(c.Open, p)
		case p.Status == parsing.StatusDeferred:
			c.Deferred = append(c.Deferred, p)
		case p.Type == parsing.TypeProcess:
			switch p.Status {
			case parsing.StatusAccepted, parsing.StatusActive:
				c.Meta = append(c.Meta, p)
			case parsing.StatusWithdrawn, parsing.StatusRejected:
				c.Dead = append(c.Dead, p)
			default:
				c.Historical = append(c.Historical, p)
			}
		case deadStatuses[p.Status]:
			c.Dead = append(c.Dead, p)
		case p.Type == parsing.TypeInformational:
			// Final release schedules are history, not guidance.
			if p.Status == parsing.StatusActive || !strings.Contains(strings.ToLower(p.Title), "release schedule") {
				c.Info = append(c.Info, p)
			} else {
				c.Historical = append(c.Historical, p)
			}
		case p.Status == parsing.StatusProvisional:
			c.Provisional = append(c.Provisional, p)
		case p.Status == parsing.StatusAccepted || p.Status == parsing.StatusActive:
			c.Accepted = append(c.Accepted, p)
		case p.Status == parsing.StatusFinal:
			c.Finished = append(c.Finished, p)
		default:
			return nil, errors.ValidationError(fmt.Sprintf("unsorted PEP (%s/%s)", p.Type, p.Status)).
				WithContext("pep", p.Number).
				WithContext("file", p.Filename).
				Build()
		}
	}
	return c, nil
}

// Sections returns the categories with their headings in index order.
func (c *Categories) Sections() []Section {
	return []Section{
		{"Meta-PEPs (PEPs about PEPs or Processes)", "meta", c.Meta},
		{"Other Informational PEPs", "info", c.Info},
		{"Provisional PEPs (provisionally accepted; interface may still change)", "provisional", c.Provisional},
		{"Accepted PEPs (accepted; may not be implemented yet)", "accepted", c.Accepted},
		{"Open PEPs (under consideration)", "open", c.Open},
		{"Finished PEPs (done, with a stable interface)", "finished", c.Finished},
		{"Historical Meta-PEPs and Informational PEPs", "historical", c.Historical},
		{"Deferred PEPs (postponed pending further research or updates)", "deferred", c.Deferred},
		{"Abandoned, Withdrawn, and Rejected PEPs", "abandoned", c.Dead},
	}
}

// Section is one titled category.
type Section struct {
	Title  string
	Anchor string
	PEPs   []*PEP
}

// AuthorIndex returns unique authors ordered by sort key. The first email
// seen for an author is kept.
func AuthorIndex(peps []*PEP) []Author {
	byName := map[string]Author{}
	for _, p := range peps {
		for _, a := range p.Authors {
			existing, ok := byName[a.LastFirst]
			if !ok || (existing.Email == "" && a.Email != "") {
				byName[a.LastFirst] = a
			}
		}
	}
	out := make([]Author, 0, len(byName))
	for _, a := range byName {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortKey != out[j].SortKey {
			return out[i].SortKey < out[j].SortKey
		}
		return out[i].LastFirst < out[j].LastFirst
	})
	return out
}
