// Package app wires one builder invocation together: it merges the build
// file into the options, runs the selected command through the lifecycle
// engine and writes the side artifacts next to the output archive.
package app
