package ssrdoc

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/ssrdoc/internal/errors"
	"github.com/vango-dev/ssrdoc/pkg/assets"
	"github.com/vango-dev/ssrdoc/pkg/engine"
	"github.com/vango-dev/ssrdoc/pkg/middleware"
	"github.com/vango-dev/ssrdoc/pkg/render"
)

// =============================================================================
// App Type
// =============================================================================

// App is the document server. It wraps routing, asset serving and the
// render dispatcher into a single http.Handler.
//
//	app, err := ssrdoc.New(ssrdoc.Config{
//	    SSR:    true,
//	    Assets: os.DirFS("build/app"),
//	    Routes: []ssrdoc.RouteConfig{{Path: "/feed", Stream: true}},
//	}, sidecarClient)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":3000", app)
type App struct {
	router http.Handler
	state  *runtimeState
	engine engine.Engine

	// Assemblers are nil when SSR is disabled.
	assembler *render.Assembler
	streamer  *render.StreamAssembler

	config Config
	logger *slog.Logger
}

// runtimeState is everything derived from the build output at startup.
// It is never modified after New returns.
type runtimeState struct {
	manifest *assets.Manifest
	shell    *render.Shell

	// staticDoc is the prebuilt index document. Nil when SSR is enabled,
	// hot reload is on, or the document could not be read.
	staticDoc []byte
}

// New creates an App. With SSR enabled it loads the manifest and, outside
// development mode, the runtime bundle for inlining; either failing is
// returned as a startup error. eng may be nil only when SSR is disabled.
func New(cfg Config, eng engine.Engine) (*App, error) {
	cfg = cfg.withDefaults()

	if cfg.Assets == nil {
		return nil, errors.New("E005").WithDetail("Config.Assets is nil.")
	}
	if cfg.SSR && eng == nil {
		return nil, errors.New("E040").
			WithDetail("SSR is enabled but no render engine was provided.")
	}
	for _, route := range cfg.Routes {
		if route.Enrich != nil && cfg.Enricher == nil {
			return nil, errors.New("E040").
				WithDetail(fmt.Sprintf("Route %q enriches but Config.Enricher is nil.", route.Path))
		}
	}

	state, err := loadRuntimeState(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		state:  state,
		engine: eng,
		config: cfg,
		logger: cfg.Logger,
	}

	if cfg.SSR {
		app.assembler = render.NewAssembler(state.shell)
		app.streamer = render.NewStreamAssembler(state.shell, eng, render.StreamOptions{
			ChunkSize: cfg.Stream.ChunkSize,
			Timeout:   cfg.Stream.Timeout,
			Logger:    cfg.Logger,
			OnEnd:     app.recordStreamOutcome,
		})
	}

	app.router = app.routes()

	cfg.Logger.Info("ssrdoc app ready",
		"ssr", cfg.SSR,
		"dev", cfg.DevMode,
		"prefix", cfg.Prefix,
		"routes", len(cfg.Routes))

	return app, nil
}

func loadRuntimeState(cfg Config) (*runtimeState, error) {
	state := &runtimeState{}

	if !cfg.SSR {
		if !cfg.HotReload {
			doc, err := fs.ReadFile(cfg.Assets, cfg.Static.Index)
			if err != nil {
				cfg.Logger.Warn("static index document unavailable, serving empty documents",
					"index", cfg.Static.Index,
					"error", err)
			} else {
				state.staticDoc = doc
			}
		}
		return state, nil
	}

	manifest := cfg.Manifest
	if manifest == nil {
		var err error
		manifest, err = assets.LoadFS(cfg.Assets, cfg.ManifestName)
		if err != nil {
			return nil, err
		}
	}
	state.manifest = manifest

	doc := cfg.Document
	if doc.RuntimeEntry == "" {
		doc.RuntimeEntry = render.DefaultDocument().RuntimeEntry
	}

	var inline string
	if !cfg.DevMode {
		var err error
		inline, err = assets.InlineSource(cfg.Assets, manifest, doc.RuntimeEntry)
		if err != nil {
			return nil, err
		}
	}

	state.shell = render.NewShell(render.ShellConfig{
		Document:      doc,
		Manifest:      manifest,
		Resolver:      assets.NewResolver(manifest, cfg.PublicPath),
		InlineRuntime: inline,
	})

	return state, nil
}

// routes builds the chi router. Document routes are mounted below Prefix;
// build assets are served from PublicPath.
func (a *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.OpenTelemetry(middleware.WithTracerName("ssrdoc")))
	if a.config.Metrics != nil {
		r.Use(a.config.Metrics.Middleware)
		r.Method(http.MethodGet, a.config.MetricsPath, a.config.Metrics.Handler())
	}

	if assetPrefix, ok := a.assetPrefix(); ok {
		r.Get(assetPrefix+"*", a.serveAsset)
	}

	mount := func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Use(withState)
		r.Use(a.config.Middleware...)

		for _, route := range a.config.Routes {
			r.Get(route.Path, a.routeHandler(route))
		}
		r.Get("/*", a.routeHandler(RouteConfig{Path: "/*"}))
	}

	if prefix := strings.TrimSuffix(a.config.Prefix, "/"); prefix == "" {
		r.Group(mount)
	} else {
		r.Route(prefix, mount)
	}

	return r
}

// assetPrefix returns the path build assets are served under. Assets
// referenced through a full URL are not served locally.
func (a *App) assetPrefix() (string, bool) {
	p := a.config.PublicPath
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return "", false
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p, true
}

// =============================================================================
// http.Handler Implementation
// =============================================================================

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Handler returns the App as an http.Handler.
func (a *App) Handler() http.Handler {
	return a
}

// Config returns the effective configuration.
func (a *App) Config() Config {
	return a.config
}

// Manifest returns the loaded manifest, or nil when SSR is disabled.
func (a *App) Manifest() *assets.Manifest {
	return a.state.manifest
}

func (a *App) recordStreamOutcome(outcome render.Outcome) {
	if a.config.Metrics != nil {
		a.config.Metrics.RecordStreamOutcome(string(outcome))
	}
}
