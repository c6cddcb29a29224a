// Package tools holds one engine.Adapter constructor per supported external
// tool, plus the ts-proto code generator that runs ahead of tsc.
package tools
