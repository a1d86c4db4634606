package zero

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/pepbuilder/internal/pep/parsing"
)

var surnameParticles = map[string]bool{
	"da": true, "de": true, "del": true, "della": true, "der": true,
	"di": true, "la": true, "le": true, "van": true, "von": true,
}

// Author is an author with the name forms used by the index.
type Author struct {
	Name  string
	Email string
	// Nick is the surname including particles, e.g. "van Rossum".
	Nick string
	// LastFirst is "Surname, First names[, Suffix]".
	LastFirst string
	// SortKey orders authors by folded surname (particles ignored) then first names.
	SortKey string
}

// NewAuthor derives the index name forms of a.
func NewAuthor(a parsing.Author) Author {
	name := strings.TrimSpace(a.Name)
	base, suffix := name, ""
	if before, after, ok := strings.Cut(name, ", "); ok {
		base, suffix = before, after
	}

	words := strings.Fields(base)
	if len(words) <= 1 {
		return Author{Name: name, Email: a.Email, Nick: name, LastFirst: name, SortKey: fold(name)}
	}

	start := len(words) - 1
	for start > 1 && surnameParticles[words[start-1]] {
		start--
	}
	surname := strings.Join(words[start:], " ")
	first := strings.Join(words[:start], " ")

	lastFirst := surname + ", " + first
	if suffix != "" {
		lastFirst += ", " + suffix
	}
	sortSurname := strings.Join(dropParticles(words[start:]), " ")
	return Author{
		Name:      name,
		Email:     a.Email,
		Nick:      surname,
		LastFirst: lastFirst,
		SortKey:   fold(sortSurname) + " " + fold(first),
	}
}

func dropParticles(words []string) []string {
	for len(words) > 1 && surnameParticles[words[0]] {
		words = words[1:]
	}
	return words
}

// fold lower-cases s and strips combining marks after NFKD decomposition.
func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
