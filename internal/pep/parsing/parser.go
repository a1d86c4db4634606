// Package parsing reads PEP source files: an RFC 2822 header preamble
// followed by a Markdown body. It also provides the :pep: role.
package parsing

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/pepbuilder/internal/doctree"
	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/gitinfo"
	"git.home.luguber.info/inful/pepbuilder/internal/host"
	"git.home.luguber.info/inful/pepbuilder/internal/inline"
	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

// Suffix is the file suffix of PEP sources.
const Suffix = ".md"

// Metadata keys set on parsed documents.
const (
	MetaNumber   = "pep"
	MetaTitle    = "title"
	MetaStatus   = "status"
	MetaType     = "type"
	MetaHeaders  = "headers"
	MetaContents = "contents"
)

// LastModifiedLayout formats footer dates.
const LastModifiedLayout = "2006-01-02 15:04:05 MST"

// Parser is the host.SourceParser for PEP documents.
type Parser struct {
	git *gitinfo.Resolver
	md  goldmark.Markdown
}

// NewParser returns a parser. git may be nil, in which case file
// modification times are used for the footer.
func NewParser(git *gitinfo.Resolver) *Parser {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithInlineParsers(
				util.Prioritized(inline.NewReferenceParser(), inline.Priority),
				util.Prioritized(host.NewRoleParser(), 150),
			),
			parser.WithASTTransformers(util.Prioritized(doctree.MathBlockTransformer{}, 100)),
		),
	)
	return &Parser{git: git, md: md}
}

func (p *Parser) Name() string { return "pep" }

func (p *Parser) Suffixes() []string { return []string{Suffix} }

// Parse implements host.SourceParser.
func (p *Parser) Parse(pc *host.ParseContext, src []byte) (*host.Document, error) {
	headers, body, err := SplitHeaders(src)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryParse, "invalid PEP preamble").
			WithContext("document", pc.Docname).
			Build()
	}
	number, title, err := requiredHeaders(headers)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryParse, "invalid PEP preamble").
			WithContext("document", pc.Docname).
			Build()
	}

	gpc := parser.NewContext()
	host.WithParseContext(gpc, pc)
	root := p.md.Parser().Parse(text.NewReader(body), parser.WithContext(gpc))
	if errs := inline.Errors(gpc); len(errs) > 0 {
		return nil, errors.WrapError(errs[0], errors.CategoryParse, "invalid inline markup").
			WithContext("document", pc.Docname).
			Build()
	}

	fullTitle := fmt.Sprintf("PEP %d – %s", number, title)
	contents := collectContents(root, body)
	t := transformer{s: pc.Settings, headers: headers}
	t.apply(root, fullTitle, contents, p.footer(pc))

	return &host.Document{
		Name:   pc.Docname,
		Path:   pc.Path,
		Source: body,
		Root:   root,
		Title:  fullTitle,
		Metadata: map[string]any{
			MetaNumber:   number,
			MetaTitle:    title,
			MetaStatus:   headers.Value("Status"),
			MetaType:     headers.Value("Type"),
			MetaHeaders:  headers,
			MetaContents: contents,
		},
		Settings: pc.Settings,
	}, nil
}

func requiredHeaders(headers Headers) (int, string, error) {
	raw, ok := headers.Get("PEP")
	if !ok {
		return 0, "", fmt.Errorf("missing PEP header")
	}
	number, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || number < 0 {
		return 0, "", fmt.Errorf("PEP header %q is not a number", raw)
	}
	title := headers.Value("Title")
	if title == "" {
		return 0, "", fmt.Errorf("missing Title header")
	}
	return number, title, nil
}

func (p *Parser) footer(pc *host.ParseContext) *doctree.Footer {
	f := &doctree.Footer{}
	if pc.Path == "" {
		return f
	}
	name := pc.Docname + Suffix
	if base := pc.Settings.String(settings.KeySourceURL); base != "" {
		f.SourceURL = base + name
	}
	if base := pc.Settings.String(settings.KeyHistoryURL); base != "" {
		f.HistoryURL = base + name
	}
	if when, ok := p.lastModified(pc); ok {
		f.LastModified = when.UTC().Format(LastModifiedLayout)
	}
	return f
}

func (p *Parser) lastModified(pc *host.ParseContext) (time.Time, bool) {
	if p.git != nil {
		when, err := p.git.LastModified(pc.Path)
		if err == nil {
			return when, true
		}
		pc.Logger.Debug("No git history for document, using file time", "error", err)
	}
	info, err := os.Stat(pc.Path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
