// Package engine provides the fetch engines the crawler escalates through:
// a fast pure-HTTP engine with a Chrome TLS fingerprint, and a headless
// browser engine for the portal's asynchronously rendered listing pages.
package engine

import "context"

// Engine is the interface all fetch engines implement.
type Engine interface {
	// Name returns the engine identifier ("http" or "browser").
	Name() string

	// Fetch retrieves the page at url and returns its markup.
	Fetch(ctx context.Context, url string) (*Result, error)
}

// Result is the output of a successful engine fetch.
type Result struct {
	HTML       string
	StatusCode int
	EngineName string
}
