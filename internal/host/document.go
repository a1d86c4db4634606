package host

import (
	"sort"
	"sync"

	"github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/pepbuilder/internal/settings"
)

// Document is a parsed source document.
type Document struct {
	// Name is the docname: the source file name without its suffix.
	Name string
	// Path is the absolute source path.
	Path string
	// Raw is the unmodified file content.
	Raw []byte
	// Source is the byte slice Root's segments point into.
	Source []byte
	Root   ast.Node
	Title  string
	// Metadata carries parser-specific values (for example PEP headers).
	Metadata map[string]any
	Settings *settings.Settings
}

// Environment tracks the documents of one build.
type Environment struct {
	SrcDir string

	mu      sync.RWMutex
	sources map[string]string
	docs    map[string]*Document
}

// NewEnvironment returns an empty environment rooted at srcDir.
func NewEnvironment(srcDir string) *Environment {
	return &Environment{
		SrcDir:  srcDir,
		sources: make(map[string]string),
		docs:    make(map[string]*Document),
	}
}

// AddSource registers docname as read from path, replacing any previous path.
func (e *Environment) AddSource(docname, path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources[docname] = path
}

// Source returns the path registered for docname.
func (e *Environment) Source(docname string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.sources[docname]
	return p, ok
}

// Docnames returns all registered docnames in sorted order.
func (e *Environment) Docnames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.sources))
	for name := range e.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Document returns the parsed document for docname.
func (e *Environment) Document(docname string) (*Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.docs[docname]
	return d, ok
}

// Documents returns the parsed documents in docname order.
func (e *Environment) Documents() []*Document {
	names := e.Docnames()
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Document, 0, len(names))
	for _, name := range names {
		if d, ok := e.docs[name]; ok {
			out = append(out, d)
		}
	}
	return out
}

func (e *Environment) setDocument(d *Document) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.docs[d.Name] = d
}
