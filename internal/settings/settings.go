// Package settings holds the process-wide default document settings.
//
// Every document is parsed with a clone of Defaults() taken at read time, so
// values set before the read phase (for example from a builder-inited
// callback) reach every document. Defaults are never torn down.
package settings

import (
	"maps"
	"sync"
)

// Host-owned keys.
const (
	KeyPEPReferences      = "pep_references"
	KeyRFCReferences      = "rfc_references"
	KeyPEPBaseURL         = "pep_base_url"
	KeyPEPFileURLTemplate = "pep_file_url_template"
	KeyRFCBaseURL         = "rfc_base_url"
	KeyDisableConfig      = "_disable_config"

	// KeyPEPURL is a printf template taking the PEP number as an int.
	KeyPEPURL = "pep_url"

	KeySourceURL  = "pep_source_url"
	KeyHistoryURL = "pep_history_url"

	// KeyCanonicalURL prefixes the page URLs published in the JSON index.
	KeyCanonicalURL = "pep_canonical_url"
)

// Settings is a string-keyed settings mapping.
type Settings struct {
	mu     sync.RWMutex
	values map[string]any
}

// New creates a Settings initialized with a copy of values.
func New(values map[string]any) *Settings {
	s := &Settings{values: make(map[string]any, len(values))}
	maps.Copy(s.values, values)
	return s
}

// Base returns the host's built-in defaults.
func Base() map[string]any {
	return map[string]any{
		KeyPEPReferences:      false,
		KeyRFCReferences:      false,
		KeyPEPBaseURL:         "https://peps.python.org/",
		KeyPEPFileURLTemplate: "pep-%04d",
		KeyRFCBaseURL:         "https://datatracker.ietf.org/doc/html/",
		KeyDisableConfig:      false,
	}
}

var defaults = New(Base())

// Defaults returns the process-wide default settings.
func Defaults() *Settings {
	return defaults
}

// Get returns the raw value for key.
func (s *Settings) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *Settings) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Merge copies every entry of values into s, replacing existing keys.
func (s *Settings) Merge(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.values, values)
}

// String returns the value for key if it is a string, or "".
func (s *Settings) String(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// Bool returns the value for key if it is a bool, or false.
func (s *Settings) Bool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

// Has reports whether key is set.
func (s *Settings) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Clone returns an independent copy of s.
func (s *Settings) Clone() *Settings {
	return New(s.Snapshot())
}

// Snapshot returns a copy of the underlying mapping.
func (s *Settings) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	maps.Copy(out, s.values)
	return out
}

// Replace discards every entry of s and stores a copy of values.
func (s *Settings) Replace(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]any, len(values))
	maps.Copy(s.values, values)
}
