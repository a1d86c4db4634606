package parsing

import (
	"regexp"
	"strings"
)

// PEP statuses.
const (
	StatusAccepted    = "Accepted"
	StatusActive      = "Active"
	StatusAprilFool   = "April Fool!"
	StatusDeferred    = "Deferred"
	StatusDraft       = "Draft"
	StatusFinal       = "Final"
	StatusProvisional = "Provisional"
	StatusRejected    = "Rejected"
	StatusSuperseded  = "Superseded"
	StatusWithdrawn   = "Withdrawn"
)

// PEP types.
const (
	TypeInformational = "Informational"
	TypeProcess       = "Process"
	TypeStandards     = "Standards Track"
)

// StatusTitles holds the hover text of each known status.
var StatusTitles = map[string]string{
	StatusAccepted:    "Normative proposal accepted for implementation",
	StatusActive:      "Currently valid informational guidance, or an in-use process",
	StatusAprilFool:   "Humorous proposal published on April Fools' Day",
	StatusDeferred:    "Inactive draft that may be taken up again at a later time",
	StatusDraft:       "Proposal under active discussion and revision",
	StatusFinal:       "Accepted and implementation complete, or no longer active",
	StatusProvisional: "Provisionally accepted but additional feedback needed",
	StatusRejected:    "Formally declined and will not be accepted",
	StatusSuperseded:  "Replaced by another succeeding PEP",
	StatusWithdrawn:   "Removed from consideration by sponsor or authors",
}

// TypeTitles holds the hover text of each known type.
var TypeTitles = map[string]string{
	TypeInformational: "Non-normative PEP containing background, guidelines or other information relevant to the Python ecosystem",
	TypeProcess:       "Normative PEP describing or proposing a change to a Python community process, workflow or governance",
	TypeStandards:     "Normative PEP with a new feature for Python, implementation change for CPython or interoperability standard for the ecosystem",
}

// Author is one entry of an Author header.
type Author struct {
	Name  string
	Email string
}

var (
	angledAuthor = regexp.MustCompile(`^(.+?)\s*<([^>]+)>$`)
	parenAuthor  = regexp.MustCompile(`^(\S+@\S+)\s*\((.+)\)$`)
)

var nameSuffixes = map[string]bool{"Jr.": true, "Jr": true, "Sr.": true, "Sr": true, "II": true, "III": true, "IV": true}

// ParseAuthors splits an Author header into names and optional emails. It
// accepts "Name <email>", "email (Name)" and plain names. A comma followed
// by a suffix such as "Jr." stays part of the preceding name.
func ParseAuthors(value string) []Author {
	var parts []string
	for _, p := range splitOutsideParens(value) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if nameSuffixes[p] && len(parts) > 0 {
			parts[len(parts)-1] += ", " + p
			continue
		}
		parts = append(parts, p)
	}

	authors := make([]Author, 0, len(parts))
	for _, p := range parts {
		switch {
		case angledAuthor.MatchString(p):
			m := angledAuthor.FindStringSubmatch(p)
			authors = append(authors, Author{Name: strings.TrimSpace(m[1]), Email: m[2]})
		case parenAuthor.MatchString(p):
			m := parenAuthor.FindStringSubmatch(p)
			authors = append(authors, Author{Name: strings.TrimSpace(m[2]), Email: m[1]})
		default:
			authors = append(authors, Author{Name: p})
		}
	}
	return authors
}

// AuthorNames returns the comma-joined names of authors.
func AuthorNames(authors []Author) string {
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

func splitOutsideParens(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(', '<':
			depth++
		case ')', '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// SplitList splits a comma separated header such as Requires.
func SplitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
