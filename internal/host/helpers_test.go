package host

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/pepbuilder/internal/inline"
	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

// markdownParser is a minimal SourceParser used to drive the host in tests.
type markdownParser struct {
	seen func(pc *ParseContext)
}

func (markdownParser) Name() string       { return "markdown" }
func (markdownParser) Suffixes() []string { return []string{".md"} }

func (p markdownParser) Parse(pc *ParseContext, src []byte) (*Document, error) {
	if p.seen != nil {
		p.seen(pc)
	}
	md := goldmark.New(goldmark.WithParserOptions(
		parser.WithInlineParsers(util.Prioritized(NewRoleParser(), 100)),
	))
	gpc := parser.NewContext()
	WithParseContext(gpc, pc)
	root := md.Parser().Parse(text.NewReader(src), parser.WithContext(gpc))
	if errs := inline.Errors(gpc); len(errs) > 0 {
		return nil, errs[0]
	}
	return &Document{Source: src, Root: root, Title: pc.Docname, Settings: pc.Settings}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSources(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// preserveDefaults restores the process-wide settings after the test.
func preserveDefaults(t *testing.T) {
	t.Helper()
	saved := settings.Defaults().Snapshot()
	t.Cleanup(func() { settings.Defaults().Replace(saved) })
}

func readOutput(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(bytes.TrimSpace(data))
}
