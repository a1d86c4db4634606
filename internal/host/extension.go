package host

// ExtensionMetadata is what an extension's Setup reports back to the host.
type ExtensionMetadata struct {
	Version           string
	ParallelReadSafe  bool
	ParallelWriteSafe bool
}

// AsMap returns the parallel-safety capability keys.
func (m ExtensionMetadata) AsMap() map[string]bool {
	return map[string]bool{
		"parallel_read_safe":  m.ParallelReadSafe,
		"parallel_write_safe": m.ParallelWriteSafe,
	}
}

// Extension is a unit of registration logic loaded into an Application.
type Extension interface {
	Name() string
	Setup(app *Application) (ExtensionMetadata, error)
}

// ExtensionFunc adapts a setup function to Extension.
type ExtensionFunc struct {
	ExtName string
	Fn      func(app *Application) (ExtensionMetadata, error)
}

func (f ExtensionFunc) Name() string { return f.ExtName }

func (f ExtensionFunc) Setup(app *Application) (ExtensionMetadata, error) { return f.Fn(app) }
