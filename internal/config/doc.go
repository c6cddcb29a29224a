// Package config defines the immutable, validated description of one builder
// invocation: where the module lives in the source and build trees, which
// binaries to run and what the build is expected to produce.
//
// An Options value is built exactly once per process by New, which checks
// every field and derives the module's source and build directories. No step
// of the build lifecycle modifies it afterwards.
package config
