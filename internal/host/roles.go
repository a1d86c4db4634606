package host

import (
	"context"
	"log/slog"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/pepbuilder/internal/doctree"
	"git.home.luguber.info/inful/pepbuilder/internal/inline"
	"git.home.luguber.info/inful/pepbuilder/internal/logfields"
	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

// RoleContext is what a role sees of the document it is used in.
type RoleContext struct {
	Docname  string
	Settings *settings.Settings
}

// Role resolves interpreted text such as :pep:`8` into a node.
type Role interface {
	Resolve(rc RoleContext, name, text string) (ast.Node, error)
}

// RoleFunc adapts a function to Role.
type RoleFunc func(rc RoleContext, name, text string) (ast.Node, error)

func (f RoleFunc) Resolve(rc RoleContext, name, text string) (ast.Node, error) {
	return f(rc, name, text)
}

func mathRole(_ RoleContext, _ string, text string) (ast.Node, error) {
	return doctree.NewMathInline([]byte(text)), nil
}

// ParseContext carries per-document state into a SourceParser.
type ParseContext struct {
	Context  context.Context
	Docname  string
	Path     string
	SrcDir   string
	Settings *settings.Settings
	Logger   *slog.Logger

	roles map[string]Role
}

// NewParseContext builds a ParseContext resolving roles from roles.
func NewParseContext(ctx context.Context, docname, path string, s *settings.Settings, roles map[string]Role) *ParseContext {
	if s == nil {
		s = settings.Defaults().Clone()
	}
	return &ParseContext{
		Context:  ctx,
		Docname:  docname,
		Path:     path,
		Settings: s,
		Logger:   slog.Default(),
		roles:    roles,
	}
}

// NewParseContext builds a ParseContext bound to the application's roles.
func (a *Application) NewParseContext(ctx context.Context, docname, path string, s *settings.Settings) *ParseContext {
	pc := NewParseContext(ctx, docname, path, s, a.rolesSnapshot())
	pc.SrcDir = a.opts.SrcDir
	pc.Logger = a.logger.With(logfields.Document(docname))
	return pc
}

// Role returns the role registered under name.
func (pc *ParseContext) Role(name string) (Role, bool) {
	r, ok := pc.roles[name]
	return r, ok
}

// RoleContext returns the view of pc handed to roles.
func (pc *ParseContext) RoleContext() RoleContext {
	return RoleContext{Docname: pc.Docname, Settings: pc.Settings}
}

var parseContextKey = parser.NewContextKey()

// WithParseContext stores pc in a goldmark parser context for NewRoleParser.
func WithParseContext(gpc parser.Context, pc *ParseContext) {
	gpc.Set(parseContextKey, pc)
	inline.WithSettings(gpc, pc.Settings)
}

// ParseContextFrom returns the ParseContext stored by WithParseContext.
func ParseContextFrom(gpc parser.Context) *ParseContext {
	pc, _ := gpc.Get(parseContextKey).(*ParseContext)
	return pc
}

var rolePattern = regexp.MustCompile("^:([A-Za-z][A-Za-z0-9_+.-]*):`([^`]+)`")

type roleParser struct{}

// NewRoleParser returns an inline parser for :name:`text`. Unknown roles are
// left as plain text; role errors are recorded with inline.RecordError.
func NewRoleParser() parser.InlineParser {
	return roleParser{}
}

func (roleParser) Trigger() []byte {
	return []byte{':'}
}

func (roleParser) Parse(_ ast.Node, block text.Reader, gpc parser.Context) ast.Node {
	pc := ParseContextFrom(gpc)
	if pc == nil {
		return nil
	}
	if prev := block.PrecendingCharacter(); prev != utf8.RuneError && prev != '\n' &&
		(unicode.IsLetter(prev) || unicode.IsDigit(prev)) {
		return nil
	}
	line, _ := block.PeekLine()
	loc := rolePattern.FindSubmatchIndex(line)
	if loc == nil {
		return nil
	}
	name := string(line[loc[2]:loc[3]])
	body := string(line[loc[4]:loc[5]])

	role, ok := pc.Role(name)
	if !ok {
		pc.Logger.Warn("Unknown interpreted text role", "role", name)
		return nil
	}
	node, err := role.Resolve(pc.RoleContext(), name, body)
	if err != nil {
		inline.RecordError(gpc, err)
		return nil
	}
	block.Advance(loc[1])
	return node
}
