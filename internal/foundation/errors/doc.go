// Package errors provides the classified error primitives used across pepbuilder.
//
// A ClassifiedError carries a category (config, parse, extension, build, ...),
// a severity and structured context. Errors are built with a fluent builder:
//
//	err := errors.NewError(errors.CategoryExtension, "builder already registered").
//		WithContext("builder", name).
//		Build()
//
// The CLI adapter maps categories to process exit codes.
package errors
