package plugin

import (
	"fmt"
	"sort"
	"sync"

	"git.home.luguber.info/inful/pepbuilder/internal/host"
)

// Registry manages plugin registration and discovery.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry creates a new empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
	}
}

// Register adds a plugin to the registry.
// Returns an error if a plugin with the same name already exists.
func (r *Registry) Register(plugin Plugin) error {
	if plugin == nil {
		return fmt.Errorf("cannot register nil plugin")
	}

	metadata := plugin.Metadata()
	if err := metadata.Validate(); err != nil {
		return fmt.Errorf("invalid plugin metadata: %w", err)
	}
	if metadata.Name != plugin.Name() {
		return fmt.Errorf("plugin metadata name %q does not match extension name %q", metadata.Name, plugin.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[metadata.Name]; exists {
		return fmt.Errorf("plugin %s already registered", metadata.Name)
	}

	r.plugins[metadata.Name] = plugin
	return nil
}

// Get retrieves a plugin by name.
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, ok := r.plugins[name]
	if !ok {
		return nil, fmt.Errorf("plugin %s not found", name)
	}
	return plugin, nil
}

// List returns all registered plugins sorted by name.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, 0, len(r.plugins))
	for _, plugin := range r.plugins {
		result = append(result, plugin)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Has checks if a plugin with the given name exists.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.plugins[name]
	return ok
}

// Unregister removes a plugin from the registry.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[name]; !ok {
		return fmt.Errorf("plugin %s not found", name)
	}
	delete(r.plugins, name)
	return nil
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Load sets up the named plugins on app in the given order.
func (r *Registry) Load(app *host.Application, names ...string) error {
	for _, name := range names {
		p, err := r.Get(name)
		if err != nil {
			return NewPluginError(name, "lookup", err)
		}
		if _, err := app.SetupExtension(p); err != nil {
			return NewPluginError(name, "setup", err)
		}
	}
	return nil
}

// globalRegistry is the default plugin registry used throughout the application.
var globalRegistry = NewRegistry()

// DefaultRegistry returns the global plugin registry.
func DefaultRegistry() *Registry {
	return globalRegistry
}

// Register adds a plugin to the global registry.
func Register(plugin Plugin) error {
	return globalRegistry.Register(plugin)
}

// MustRegister is Register for package init functions.
func MustRegister(plugin Plugin) {
	if err := Register(plugin); err != nil {
		panic(err)
	}
}

// Get retrieves a plugin from the global registry.
func Get(name string) (Plugin, error) {
	return globalRegistry.Get(name)
}

// List returns all plugins from the global registry.
func List() []Plugin {
	return globalRegistry.List()
}

// Load sets up the named plugins from the global registry on app.
func Load(app *host.Application, names ...string) error {
	return globalRegistry.Load(app, names...)
}
