// Package engine defines the contract between the document server and the
// render engine that turns a request URL plus initial data into markup.
//
// The engine is an external collaborator. The sidecar subpackage talks to a
// render process over HTTP; tests use in-memory implementations.
package engine

import (
	"context"
	"io"
)

// Engine renders application markup.
type Engine interface {
	// Render produces the complete markup for url. Result.HTML is set.
	Render(ctx context.Context, url string, data map[string]any) (*Result, error)

	// RenderStream starts a progressive render for url. Result.Stream is set
	// and must be closed by the caller.
	RenderStream(ctx context.Context, url string, data map[string]any) (*Result, error)

	// ScriptsForModules returns script tag markup for the chunks needed by
	// the given rendered modules, in load order.
	ScriptsForModules(modules []string) []string
}

// Result is the outcome of a render. Exactly one of HTML and Stream is set.
type Result struct {
	HTML   string
	Stream io.ReadCloser
	Extra  Extra
}

// Extra carries per-render document options.
type Extra struct {
	// Title is the document title. Empty means the configured default.
	Title string

	// InitialData is serialized into the hydration script. Nil renders as {}.
	InitialData any

	// Modules lists the component identifiers that were rendered, in order.
	Modules []string

	// Scripts holds script tags already resolved by the engine. Used by
	// synchronous renders.
	Scripts []string
}

// ModuleReporter is implemented by streams that learn the rendered modules
// while rendering. Modules is only meaningful after the stream returned
// io.EOF.
type ModuleReporter interface {
	Modules() []string
}

// Func adapts plain functions to Engine. Nil fields fail or return nothing.
type Func struct {
	RenderFunc       func(ctx context.Context, url string, data map[string]any) (*Result, error)
	RenderStreamFunc func(ctx context.Context, url string, data map[string]any) (*Result, error)
	ScriptsFunc      func(modules []string) []string
}

// Render implements Engine.
func (f Func) Render(ctx context.Context, url string, data map[string]any) (*Result, error) {
	if f.RenderFunc == nil {
		return nil, ErrNotSupported
	}
	return f.RenderFunc(ctx, url, data)
}

// RenderStream implements Engine.
func (f Func) RenderStream(ctx context.Context, url string, data map[string]any) (*Result, error) {
	if f.RenderStreamFunc == nil {
		return nil, ErrNotSupported
	}
	return f.RenderStreamFunc(ctx, url, data)
}

// ScriptsForModules implements Engine.
func (f Func) ScriptsForModules(modules []string) []string {
	if f.ScriptsFunc == nil {
		return nil
	}
	return f.ScriptsFunc(modules)
}
