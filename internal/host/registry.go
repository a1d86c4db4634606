package host

import (
	"context"
	"slices"
	"strings"

	"github.com/yuin/goldmark/renderer"

	"git.home.luguber.info/inful/pepbuilder/internal/doctree"
	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/logfields"
)

// Builder turns read documents into output files.
type Builder interface {
	Name() string
	Init(app *Application) error
	// TargetPath returns the output path of docname relative to the output dir.
	TargetPath(docname string) string
	Write(ctx context.Context, doc *Document) error
	Finish(ctx context.Context, env *Environment) error
}

// BuilderFactory creates a fresh builder for one build.
type BuilderFactory func() Builder

// SourceParser turns raw source bytes into a Document.
type SourceParser interface {
	Name() string
	// Suffixes lists the file suffixes handled, including the leading dot.
	Suffixes() []string
	Parse(pc *ParseContext, src []byte) (*Document, error)
}

// TranslatorFactory returns the node renderer used for one document. The
// returned renderer takes precedence over the default renderers for every
// node kind it registers.
type TranslatorFactory func(doc *Document) renderer.NodeRenderer

// AddBuilder registers a builder under the name its factory reports.
func (a *Application) AddBuilder(factory BuilderFactory, override bool) error {
	if factory == nil {
		return errors.ExtensionError("builder factory is nil").Build()
	}
	name := factory().Name()

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.builders[name]; exists && !override {
		return errors.NewError(errors.CategoryExtension, "builder already registered").
			WithContext("builder", name).
			Build()
	}
	a.builders[name] = factory
	a.logger.Debug("Registered builder", logfields.Builder(name), "override", override)
	return nil
}

// HasBuilder reports whether a builder is registered under name.
func (a *Application) HasBuilder(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.builders[name]
	return ok
}

// BuilderNames returns the registered builder names, sorted.
func (a *Application) BuilderNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.builders))
	for name := range a.builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewBuilder creates the builder registered under name.
func (a *Application) NewBuilder(name string) (Builder, error) {
	a.mu.RLock()
	factory, ok := a.builders[name]
	a.mu.RUnlock()
	if !ok {
		return nil, errors.NewError(errors.CategoryConfig, "unknown builder").
			WithContext("builder", name).
			WithContext("available", strings.Join(a.BuilderNames(), ", ")).
			Build()
	}
	return factory(), nil
}

// AddSourceParser registers p for every suffix it reports.
func (a *Application) AddSourceParser(p SourceParser, override bool) error {
	if p == nil {
		return errors.ExtensionError("source parser is nil").Build()
	}
	suffixes := p.Suffixes()
	if len(suffixes) == 0 {
		return errors.NewError(errors.CategoryExtension, "source parser handles no suffixes").
			WithContext("parser", p.Name()).
			Build()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !override {
		for _, suffix := range suffixes {
			if existing, ok := a.parsers[suffix]; ok {
				return errors.NewError(errors.CategoryExtension, "source parser already registered for suffix").
					WithContext("suffix", suffix).
					WithContext("parser", existing.Name()).
					Build()
			}
		}
	}
	for _, suffix := range suffixes {
		a.parsers[suffix] = p
	}
	a.logger.Debug("Registered source parser", "parser", p.Name(), "suffixes", suffixes)
	return nil
}

// SourceParser returns the parser registered for suffix.
func (a *Application) SourceParser(suffix string) (SourceParser, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.parsers[suffix]
	return p, ok
}

// Suffixes returns the registered source suffixes, sorted.
func (a *Application) Suffixes() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.parsers))
	for suffix := range a.parsers {
		out = append(out, suffix)
	}
	slices.Sort(out)
	return out
}

// AddRole registers an inline role.
func (a *Application) AddRole(name string, role Role, override bool) error {
	if name == "" || role == nil {
		return errors.ExtensionError("role needs a name and an implementation").Build()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.roles[name]; exists && !override {
		return errors.NewError(errors.CategoryExtension, "role already registered").
			WithContext("role", name).
			Build()
	}
	a.roles[name] = role
	return nil
}

// Role returns the role registered under name.
func (a *Application) Role(name string) (Role, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.roles[name]
	return r, ok
}

func (a *Application) rolesSnapshot() map[string]Role {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]Role, len(a.roles))
	for k, v := range a.roles {
		out[k] = v
	}
	return out
}

// SetTranslator sets the translator used when builderName is active.
func (a *Application) SetTranslator(builderName string, factory TranslatorFactory, override bool) error {
	if factory == nil {
		return errors.ExtensionError("translator factory is nil").Build()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.translators[builderName]; exists && !override {
		return errors.NewError(errors.CategoryExtension, "translator already set").
			WithContext("builder", builderName).
			Build()
	}
	a.translators[builderName] = factory
	return nil
}

// Translator returns the translator set for builderName.
func (a *Application) Translator(builderName string) (TranslatorFactory, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	f, ok := a.translators[builderName]
	return f, ok
}

// AddHTMLMathRenderer registers a named pair of inline/block renderers.
func (a *Application) AddHTMLMathRenderer(name string, inline, block doctree.MathRendererPair) error {
	if name == "" {
		return errors.ExtensionError("math renderer needs a name").Build()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.mathRenderers[name]; exists {
		return errors.NewError(errors.CategoryExtension, "math renderer already registered").
			WithContext("renderer", name).
			Build()
	}
	a.mathRenderers[name] = doctree.MathRenderer{Name: name, Inline: inline, Block: block}
	return nil
}

// MathRenderer returns the renderer named by Options.MathRenderer. Without a
// configured name the only registered renderer is used, and with none or
// several registered the default renderer is returned.
func (a *Application) MathRenderer() (doctree.MathRenderer, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if name := a.opts.MathRenderer; name != "" {
		mr, ok := a.mathRenderers[name]
		if !ok {
			return doctree.MathRenderer{}, errors.NewError(errors.CategoryConfig, "unknown math renderer").
				WithContext("renderer", name).
				Build()
		}
		return mr, nil
	}
	if len(a.mathRenderers) == 1 {
		for _, mr := range a.mathRenderers {
			return mr, nil
		}
	}
	return doctree.DefaultMathRenderer(), nil
}
