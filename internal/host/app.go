package host

import (
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/pepbuilder/internal/doctree"
	"git.home.luguber.info/inful/pepbuilder/internal/envcache"
	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/logfields"
	"git.home.luguber.info/inful/pepbuilder/internal/metrics"
)

// Options configures an Application.
type Options struct {
	SrcDir string
	OutDir string

	// Builder is the name of the builder Build uses. Defaults to "html".
	Builder string

	// SourcePattern is a filepath.Match pattern source file names must match.
	// Defaults to "*".
	SourcePattern string

	// Parallel bounds read/write workers. Zero or less means runtime.NumCPU().
	Parallel int

	// MathRenderer names the HTML math renderer to use. Empty selects the
	// only registered renderer, or the default one.
	MathRenderer string

	// Cache stores fingerprints of written documents. Nil disables it.
	Cache *envcache.Store
	// Incremental skips documents whose fingerprint and output are unchanged.
	Incremental bool

	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Application is the build host extensions register against.
type Application struct {
	opts     Options
	logger   *slog.Logger
	recorder metrics.Recorder

	mu            sync.RWMutex
	builders      map[string]BuilderFactory
	parsers       map[string]SourceParser
	roles         map[string]Role
	translators   map[string]TranslatorFactory
	mathRenderers map[string]doctree.MathRenderer
	listeners     map[EventName][]listener
	nextListener  int
	extensions    map[string]ExtensionMetadata
	extOrder      []string

	builder Builder
	env     *Environment
}

// New creates an Application with the stock html/dirhtml builders and the
// built-in math role registered.
func New(opts Options) *Application {
	if opts.Builder == "" {
		opts.Builder = "html"
	}
	if opts.SourcePattern == "" {
		opts.SourcePattern = "*"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}

	a := &Application{
		opts:          opts,
		logger:        opts.Logger,
		recorder:      opts.Recorder,
		builders:      make(map[string]BuilderFactory),
		parsers:       make(map[string]SourceParser),
		roles:         make(map[string]Role),
		translators:   make(map[string]TranslatorFactory),
		mathRenderers: make(map[string]doctree.MathRenderer),
		listeners:     make(map[EventName][]listener),
		extensions:    make(map[string]ExtensionMetadata),
	}
	// Stock registrations cannot collide on a fresh application.
	_ = a.AddBuilder(NewStandaloneHTMLBuilder, false)
	_ = a.AddBuilder(NewDirectoryHTMLBuilder, false)
	_ = a.AddRole("math", RoleFunc(mathRole), false)
	return a
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// Options returns the options the application was created with.
func (a *Application) Options() Options { return a.opts }

// SrcDir returns the source directory.
func (a *Application) SrcDir() string { return a.opts.SrcDir }

// OutDir returns the output directory.
func (a *Application) OutDir() string { return a.opts.OutDir }

// Builder returns the active builder, or nil before Build initializes it.
func (a *Application) Builder() Builder {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.builder
}

// SetBuilder sets the active builder. Build calls it; tests may too.
func (a *Application) SetBuilder(b Builder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.builder = b
}

// Env returns the environment of the current build, or nil.
func (a *Application) Env() *Environment {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.env
}

// SetupExtension loads ext once. Loading an already loaded name returns the
// recorded metadata without calling Setup again.
func (a *Application) SetupExtension(ext Extension) (ExtensionMetadata, error) {
	name := ext.Name()
	a.mu.RLock()
	md, loaded := a.extensions[name]
	a.mu.RUnlock()
	if loaded {
		return md, nil
	}

	md, err := ext.Setup(a)
	if err != nil {
		return ExtensionMetadata{}, errors.WrapError(err, errors.CategoryExtension, "extension setup failed").
			Fatal().
			WithContext("extension", name).
			Build()
	}

	a.mu.Lock()
	a.extensions[name] = md
	a.extOrder = append(a.extOrder, name)
	a.mu.Unlock()

	a.logger.Debug("Extension loaded", logfields.Extension(name),
		"parallel_read_safe", md.ParallelReadSafe, "parallel_write_safe", md.ParallelWriteSafe)
	return md, nil
}

// Extensions returns loaded extension names in load order.
func (a *Application) Extensions() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.extOrder...)
}

// ExtensionMetadata returns the metadata recorded for a loaded extension.
func (a *Application) ExtensionMetadata(name string) (ExtensionMetadata, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	md, ok := a.extensions[name]
	return md, ok
}

// ParallelReadSafe reports whether every loaded extension allows parallel reading.
func (a *Application) ParallelReadSafe() bool {
	return a.allExtensions(func(md ExtensionMetadata) bool { return md.ParallelReadSafe })
}

// ParallelWriteSafe reports whether every loaded extension allows parallel writing.
func (a *Application) ParallelWriteSafe() bool {
	return a.allExtensions(func(md ExtensionMetadata) bool { return md.ParallelWriteSafe })
}

func (a *Application) allExtensions(pred func(ExtensionMetadata) bool) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, md := range a.extensions {
		if !pred(md) {
			return false
		}
	}
	return true
}
