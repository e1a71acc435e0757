package ssrdoc

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/PuerkitoBio/goquery"

	"github.com/vango-dev/ssrdoc/pkg/engine"
	"github.com/vango-dev/ssrdoc/pkg/render"
)

const testManifest = `{
  "manifest": {"runtime.js": "runtime.1a2b.js", "app.js": "app.3c4d.js"},
  "styles": ["app.5e6f.css"],
  "modules": {"Widget": ["widget.7a8b.js"]}
}`

const (
	runtimeSource = `window.__runtime__=1;`
	indexDocument = "<!DOCTYPE html><html><body><div id=\"app\"></div></body></html>"
)

// testAssets is a complete build output.
func testAssets() fstest.MapFS {
	return fstest.MapFS{
		"manifest.json":   {Data: []byte(testManifest)},
		"runtime.1a2b.js": {Data: []byte(runtimeSource)},
		"app.3c4d.js":     {Data: []byte("app()")},
		"app.5e6f.css":    {Data: []byte("body{}")},
		"widget.7a8b.js":  {Data: []byte("widget()")},
		"index.html":      {Data: []byte(indexDocument)},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns an SSR config over testAssets in development mode.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DevMode = true
	cfg.Assets = testAssets()
	cfg.Logger = discardLogger()
	return cfg
}

func newTestApp(t *testing.T, cfg Config, eng engine.Engine) *App {
	t.Helper()
	app, err := New(cfg, eng)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return app
}

func get(app http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://example.com"+target, nil)
	app.ServeHTTP(rr, req)
	return rr
}

func parseDocument(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	return doc
}

// renderCall records what the engine was asked to render.
type renderCall struct {
	url  string
	data map[string]any
}

// fakeEngine renders fixed markup and records its calls.
type fakeEngine struct {
	mu    sync.Mutex
	calls []renderCall

	html    string
	title   string
	scripts []string
	chunks  []string
	modules []string
	err     error

	stream *trackedStream
}

func (e *fakeEngine) record(url string, data map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, renderCall{url: url, data: data})
}

func (e *fakeEngine) lastCall(t *testing.T) renderCall {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.calls) == 0 {
		t.Fatal("engine was not called")
	}
	return e.calls[len(e.calls)-1]
}

func (e *fakeEngine) Render(ctx context.Context, url string, data map[string]any) (*engine.Result, error) {
	e.record(url, data)
	if e.err != nil {
		return nil, e.err
	}
	return &engine.Result{
		HTML:  e.html,
		Extra: engine.Extra{Title: e.title, Scripts: e.scripts},
	}, nil
}

func (e *fakeEngine) RenderStream(ctx context.Context, url string, data map[string]any) (*engine.Result, error) {
	e.record(url, data)
	if e.err != nil {
		return nil, e.err
	}
	e.stream = &trackedStream{Reader: strings.NewReader(strings.Join(e.chunks, ""))}
	return &engine.Result{
		Stream: e.stream,
		Extra:  engine.Extra{Title: e.title, Modules: e.modules},
	}, nil
}

// ScriptsForModules maps Widget to /w.js.
func (e *fakeEngine) ScriptsForModules(modules []string) []string {
	var tags []string
	for _, m := range modules {
		if m == "Widget" {
			tags = append(tags, render.ScriptTag("/w.js"))
		}
	}
	return tags
}

type trackedStream struct {
	io.Reader
	mu     sync.Mutex
	closed int
}

func (s *trackedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *trackedStream) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// enricherFunc adapts a function to Enricher.
type enricherFunc func(ctx context.Context, url string) (any, error)

func (f enricherFunc) Fetch(ctx context.Context, url string) (any, error) {
	return f(ctx, url)
}
