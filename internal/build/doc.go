// Package build provides the canonical build execution pipeline for pepbuilder.
//
// The CLI build and watch commands and the tests all route through
// BuildService, which turns a loaded configuration into a host.Application
// with the configured extensions and runs it.
package build
