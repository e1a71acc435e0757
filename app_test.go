package ssrdoc

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/ssrdoc/internal/errors"
	"github.com/vango-dev/ssrdoc/pkg/assets"
	"github.com/vango-dev/ssrdoc/pkg/middleware"
	"github.com/vango-dev/ssrdoc/pkg/render"
)

func TestConfigDefaults(t *testing.T) {
	def := DefaultConfig()
	if def.Stream.Timeout != render.DefaultStreamTimeout {
		t.Errorf("DefaultConfig().Stream.Timeout = %v, want %v", def.Stream.Timeout, render.DefaultStreamTimeout)
	}

	filled := Config{}.withDefaults()
	if filled.Stream.Timeout != 0 {
		t.Errorf("zero Timeout should stay disabled, got %v", filled.Stream.Timeout)
	}
	if filled.Stream.ChunkSize != render.DefaultChunkSize {
		t.Errorf("ChunkSize = %d, want %d", filled.Stream.ChunkSize, render.DefaultChunkSize)
	}
	if filled.PublicPath != "/public/" || filled.MetricsPath != "/metrics" || filled.Logger == nil {
		t.Errorf("withDefaults() = %+v", filled)
	}
}

func TestNewStartupFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		eng    bool
		code   string
	}{
		{
			name:   "missing manifest",
			mutate: func(c *Config) { delete(c.Assets.(fstest.MapFS), "manifest.json") },
			eng:    true,
			code:   "E001",
		},
		{
			name: "malformed manifest",
			mutate: func(c *Config) {
				c.Assets.(fstest.MapFS)["manifest.json"] = &fstest.MapFile{Data: []byte("{")}
			},
			eng:  true,
			code: "E002",
		},
		{
			name: "runtime entry missing",
			mutate: func(c *Config) {
				c.DevMode = false
				c.Assets.(fstest.MapFS)["manifest.json"] = &fstest.MapFile{Data: []byte(`{"app.js": "app.3c4d.js"}`)}
			},
			eng:  true,
			code: "E003",
		},
		{
			name: "runtime bundle unreadable",
			mutate: func(c *Config) {
				c.DevMode = false
				delete(c.Assets.(fstest.MapFS), "runtime.1a2b.js")
			},
			eng:  true,
			code: "E004",
		},
		{
			name:   "no assets",
			mutate: func(c *Config) { c.Assets = nil },
			eng:    true,
			code:   "E005",
		},
		{
			name:   "no engine",
			mutate: func(c *Config) {},
			eng:    false,
			code:   "E040",
		},
		{
			name: "enrich without enricher",
			mutate: func(c *Config) {
				c.Routes = []RouteConfig{{Path: "/github", Enrich: &EnrichConfig{URL: "http://x", Key: "github"}}}
			},
			eng:  true,
			code: "E040",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			var err error
			if tt.eng {
				_, err = New(cfg, &fakeEngine{})
			} else {
				_, err = New(cfg, nil)
			}
			if errors.Code(err) != tt.code {
				t.Fatalf("New() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestNewStartupErrorsAreStartupCategory(t *testing.T) {
	cfg := testConfig()
	delete(cfg.Assets.(fstest.MapFS), "manifest.json")

	_, err := New(cfg, &fakeEngine{})
	if !errors.IsCategory(err, errors.CategoryStartup) {
		t.Fatalf("error category = %q, want startup", errors.CategoryOf(err))
	}
}

func TestNewProductionInlinesRuntime(t *testing.T) {
	cfg := testConfig()
	cfg.DevMode = false
	eng := &fakeEngine{html: "<p>hi</p>"}
	app := newTestApp(t, cfg, eng)

	if app.Manifest() == nil || app.Manifest().Resolve("app.js") != "app.3c4d.js" {
		t.Fatalf("Manifest() = %v", app.Manifest())
	}

	rr := get(app, "/")
	if !strings.Contains(rr.Body.String(), `<script type="text/javascript">`+runtimeSource+`</script>`) {
		t.Errorf("runtime not inlined:\n%s", rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "runtime.1a2b.js") {
		t.Error("runtime must not be referenced by URL in production")
	}
}

func TestStaticModeServesIndexDocument(t *testing.T) {
	cfg := testConfig()
	cfg.SSR = false
	cfg.Routes = []RouteConfig{{
		Path:   "/github",
		Stream: true,
		Enrich: &EnrichConfig{URL: "http://upstream", Key: "github"},
	}}
	cfg.Enricher = enricherFunc(func(context.Context, string) (any, error) {
		t.Error("enricher must not be called when SSR is disabled")
		return nil, nil
	})
	app := newTestApp(t, cfg, nil)

	for _, target := range []string{"/", "/github", "/deep/link?x=1"} {
		rr := get(app, target)
		if rr.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", target, rr.Code)
		}
		if rr.Body.String() != indexDocument {
			t.Errorf("GET %s body = %q, want the index document", target, rr.Body.String())
		}
		if got := rr.Header().Get("Cache-Control"); got != "no-cache" {
			t.Errorf("GET %s Cache-Control = %q, want no-cache", target, got)
		}
		if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
			t.Errorf("GET %s Content-Type = %q", target, got)
		}
	}
}

func TestStaticModeMissingDocument(t *testing.T) {
	cfg := testConfig()
	cfg.SSR = false
	delete(cfg.Assets.(fstest.MapFS), "index.html")
	app := newTestApp(t, cfg, nil)

	rr := get(app, "/anything")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rr.Body.String())
	}
	if got := rr.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", got)
	}
}

func TestStaticModeHotReloadSkipsDocument(t *testing.T) {
	cfg := testConfig()
	cfg.SSR = false
	cfg.HotReload = true
	app := newTestApp(t, cfg, nil)

	if rr := get(app, "/"); rr.Code != http.StatusOK || rr.Body.Len() != 0 {
		t.Errorf("status = %d body = %q, want empty 200", rr.Code, rr.Body.String())
	}
}

func TestPrefixMountsRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Prefix = "/app"
	eng := &fakeEngine{html: "<p>prefixed</p>"}
	app := newTestApp(t, cfg, eng)

	rr := get(app, "/app/about")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "<p>prefixed</p>") {
		t.Fatalf("GET /app/about status = %d body = %q", rr.Code, rr.Body.String())
	}
	if got := eng.lastCall(t).url; got != "/app/about" {
		t.Errorf("engine url = %q, want /app/about", got)
	}

	if rr := get(app, "/about"); rr.Code != http.StatusNotFound {
		t.Errorf("GET /about status = %d, want 404", rr.Code)
	}

	// Assets stay at PublicPath.
	if rr := get(app, "/public/app.3c4d.js"); rr.Code != http.StatusOK {
		t.Errorf("GET asset status = %d, want 200", rr.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	app := newTestApp(t, testConfig(), &fakeEngine{})

	rr := get(app, "/")
	if id := rr.Header().Get(middleware.RequestIDHeader); len(id) != 26 {
		t.Errorf("%s = %q, want a ULID", middleware.RequestIDHeader, id)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := testConfig()
	cfg.Metrics = middleware.NewMetrics(middleware.WithRegistry(reg))
	cfg.Routes = []RouteConfig{{Path: "/github", Stream: true}}
	app := newTestApp(t, cfg, &fakeEngine{chunks: []string{"<p>x</p>"}})

	get(app, "/github")
	get(app, "/other")

	if got := counterValue(t, reg, "ssrdoc_requests_total", map[string]string{
		"route": "/github", "mode": "stream", "status": "200",
	}); got != 1 {
		t.Errorf("stream requests = %v, want 1", got)
	}
	if got := counterValue(t, reg, "ssrdoc_requests_total", map[string]string{
		"route": "/*", "mode": "sync", "status": "200",
	}); got != 1 {
		t.Errorf("sync requests = %v, want 1", got)
	}
	if got := counterValue(t, reg, "ssrdoc_stream_sessions_total", map[string]string{
		"outcome": "complete",
	}); got != 1 {
		t.Errorf("complete sessions = %v, want 1", got)
	}

	rr := get(app, "/metrics")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "ssrdoc_requests_total") {
		t.Errorf("GET /metrics status = %d", rr.Code)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestAssetsFromDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	buildDir := filepath.Join(tmpDir, "build")
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for name, f := range testAssets() {
		if err := os.WriteFile(filepath.Join(buildDir, name), f.Data, 0o644); err != nil {
			t.Fatalf("WriteFile %s: %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "secret.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatalf("WriteFile secret.txt: %v", err)
	}

	fsys, err := assets.Dir(buildDir)
	if err != nil {
		t.Fatalf("assets.Dir() error: %v", err)
	}
	cfg := testConfig()
	cfg.Assets = fsys
	app := newTestApp(t, cfg, &fakeEngine{})

	rr := get(app, "/public/app.5e6f.css")
	if rr.Code != http.StatusOK || rr.Body.String() != "body{}" {
		t.Fatalf("GET css status = %d body = %q", rr.Code, rr.Body.String())
	}

	for _, p := range []string{
		"/public/../secret.txt",
		"/public/%2e%2e/secret.txt",
		"/public/..%2fsecret.txt",
		"/public//etc/passwd",
	} {
		rr := get(app, p)
		if strings.Contains(rr.Body.String(), "secret") {
			t.Fatalf("GET %s unexpectedly served secret content", p)
		}
		if rr.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", p, rr.Code)
		}
	}
}
