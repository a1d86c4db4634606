// Package host is the documentation build framework extensions plug into.
//
// An Application owns the extension points: a builder registry, source
// parsers keyed by file suffix, inline roles, translators keyed by builder
// name, HTML math renderers and lifecycle events. Extensions register
// against these from their Setup function; Build then drives the
// builder-inited, env-before-read-docs, read, write and finish phases.
package host
