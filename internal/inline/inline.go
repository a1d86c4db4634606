// Package inline recognizes bare "PEP 8" and "RFC 2822" references in
// running text and turns them into links.
//
// The PEP resolver is process-wide and replaceable with SetPEPResolver; the
// replacement affects every document parsed afterwards and cannot be undone.
package inline

import (
	"fmt"
	"regexp"
	"strconv"
	"sync/atomic"
	"unicode"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

// Priority of the reference parser among goldmark inline parsers.
const Priority = 900

var referencePattern = regexp.MustCompile(
	`^(?:pep-(?P<pepnum1>\d+)(?:\.txt)?|PEP[ \t]+(?P<pepnum2>\d+)|RFC[- ]?(?P<rfcnum>\d+))`)

// Match is a recognized reference with its named groups.
type Match struct {
	Text   string
	groups map[string]string
}

// NewMatch builds a Match from text and named groups.
func NewMatch(text string, groups map[string]string) Match {
	return Match{Text: text, groups: groups}
}

// Group returns the named group, or "" when it did not participate.
func (m Match) Group(name string) string {
	return m.groups[name]
}

// Number parses the first non-empty group among names as an integer.
func (m Match) Number(names ...string) (int, error) {
	for _, name := range names {
		if g := m.Group(name); g != "" {
			return strconv.Atoi(g)
		}
	}
	return 0, fmt.Errorf("reference %q has no number in groups %v", m.Text, names)
}

// Resolver turns a matched reference into a node.
type Resolver func(s *settings.Settings, m Match) (ast.Node, error)

var pepResolver atomic.Pointer[Resolver]

func init() {
	r := Resolver(DefaultPEPResolver)
	pepResolver.Store(&r)
}

// SetPEPResolver replaces the process-wide PEP reference resolver.
func SetPEPResolver(r Resolver) {
	pepResolver.Store(&r)
}

// PEPReference resolves m with the current PEP resolver.
func PEPReference(s *settings.Settings, m Match) (ast.Node, error) {
	return (*pepResolver.Load())(s, m)
}

// RFCReference resolves m against rfc_base_url.
func RFCReference(s *settings.Settings, m Match) (ast.Node, error) {
	num, err := m.Number("rfcnum")
	if err != nil {
		return nil, err
	}
	return NewReference(m.Text, fmt.Sprintf("%srfc%d", s.String(settings.KeyRFCBaseURL), num)), nil
}

// DefaultPEPResolver links to pep_base_url joined with pep_file_url_template.
func DefaultPEPResolver(s *settings.Settings, m Match) (ast.Node, error) {
	num, err := m.Number("pepnum1", "pepnum2")
	if err != nil {
		return nil, err
	}
	tmpl := s.String(settings.KeyPEPFileURLTemplate)
	if tmpl == "" {
		tmpl = "pep-%04d"
	}
	return NewReference(m.Text, s.String(settings.KeyPEPBaseURL)+fmt.Sprintf(tmpl, num)), nil
}

// NewReference returns a link to uri labelled with label.
func NewReference(label, uri string) *ast.Link {
	link := ast.NewLink()
	link.Destination = []byte(uri)
	link.AppendChild(link, ast.NewString([]byte(label)))
	return link
}

var (
	settingsKey = parser.NewContextKey()
	errorsKey   = parser.NewContextKey()
)

// WithSettings attaches document settings to a parser context.
func WithSettings(pc parser.Context, s *settings.Settings) {
	pc.Set(settingsKey, s)
}

// SettingsFrom returns the document settings attached to pc, or nil.
func SettingsFrom(pc parser.Context) *settings.Settings {
	s, _ := pc.Get(settingsKey).(*settings.Settings)
	return s
}

// RecordError stores an inline resolution error on pc.
func RecordError(pc parser.Context, err error) {
	errs, _ := pc.Get(errorsKey).([]error)
	pc.Set(errorsKey, append(errs, err))
}

// Errors returns the inline resolution errors recorded on pc.
func Errors(pc parser.Context) []error {
	errs, _ := pc.Get(errorsKey).([]error)
	return errs
}

type referenceParser struct{}

// NewReferenceParser returns the goldmark inline parser for bare references.
func NewReferenceParser() parser.InlineParser {
	return referenceParser{}
}

// Trigger fires on whitespace and at a line head, which goldmark reports as
// ' ', and after an opening parenthesis.
func (referenceParser) Trigger() []byte {
	return []byte{' ', '('}
}

func (referenceParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	if pc.IsInLinkLabel() {
		return nil
	}
	s := SettingsFrom(pc)
	if s == nil {
		return nil
	}
	line, segment := block.PeekLine()
	if len(line) == 0 {
		return nil
	}
	consumes := 0
	if c := line[0]; c == '(' || util.IsSpace(c) {
		if c == '\r' || c == '\n' {
			return nil
		}
		consumes = 1
		line = line[1:]
	} else if isWordRune(block.PrecendingCharacter()) {
		return nil
	}

	loc := referencePattern.FindSubmatchIndex(line)
	if loc == nil {
		return nil
	}
	end := loc[1]
	if end < len(line) && isWordRune(rune(line[end])) {
		return nil
	}

	m := matchFromIndex(line, loc)
	resolve := PEPReference
	enabled := s.Bool(settings.KeyPEPReferences)
	if m.Group("rfcnum") != "" {
		resolve = RFCReference
		enabled = s.Bool(settings.KeyRFCReferences)
	}
	if !enabled {
		return nil
	}

	node, err := resolve(s, m)
	if err != nil {
		RecordError(pc, err)
		return nil
	}
	if node == nil {
		return nil
	}
	if consumes != 0 {
		ast.MergeOrAppendTextSegment(parent, segment.WithStop(segment.Start+1))
	}
	block.Advance(consumes + end)
	return node
}

func matchFromIndex(line []byte, loc []int) Match {
	groups := make(map[string]string)
	for i, name := range referencePattern.SubexpNames() {
		if name == "" || loc[2*i] < 0 {
			continue
		}
		groups[name] = string(line[loc[2*i]:loc[2*i+1]])
	}
	return NewMatch(string(line[loc[0]:loc[1]]), groups)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
