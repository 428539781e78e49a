// Package log provides a concurrency-safe, slog-based logging interface
// with structured attributes, configurable via functional options.
//
// A package-level default logger writes to stdout; commands reconfigure
// it from their flags via [Config]. The pretty text handler colorizes
// keys and values for interactive use; the plain handlers emit standard
// slog text or JSON.
package log
