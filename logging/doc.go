// Package logging provides a minimal logging interface and adapters for impossibly.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that graphs, agents and the routing extractor use for diagnostics. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - GraphLogger with run/component context and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - WithLogger / FromContext for carrying a Logger through a context.Context
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "text", false)
//	g := graph.New(func(o *graph.Options) { o.Logger = logger })
//
// The interface stays minimal so any structured logger can be plugged in.
package logging
