package ssrdoc

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/vango-dev/ssrdoc/pkg/assets"
	"github.com/vango-dev/ssrdoc/pkg/middleware"
	"github.com/vango-dev/ssrdoc/pkg/render"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the document server configuration.
type Config struct {
	// SSR enables server-side rendering. When false every route answers
	// with the prebuilt index document from Static.Index.
	SSR bool

	// DevMode references the runtime bundle by URL instead of inlining it.
	DevMode bool

	// HotReload means the client build is served by a hot-reloading dev
	// server. No static index document is loaded.
	HotReload bool

	// Prefix mounts every route below a path (e.g. "/app"). Default: "".
	Prefix string

	// PublicPath is the URL prefix under which build assets are served and
	// referenced. A full URL (CDN) disables local asset serving.
	// Default: "/public/".
	PublicPath string

	// Assets is the client build output. Required.
	Assets fs.FS

	// ManifestName is the manifest file inside Assets.
	// Default: "manifest.json".
	ManifestName string

	// Manifest, when set, is used instead of reading ManifestName.
	Manifest *assets.Manifest

	// Static configures the prebuilt index document and asset serving.
	Static StaticConfig

	// Document overrides document defaults (title, language, container,
	// hydration global).
	Document render.Document

	// Routes lists explicitly configured routes. Any other GET is rendered
	// synchronously.
	Routes []RouteConfig

	// Stream configures streamed responses.
	Stream StreamConfig

	// Enricher fetches upstream data for routes with Enrich set.
	// Required when any route enriches.
	Enricher Enricher

	// Metrics records request and session metrics. Nil disables metrics.
	Metrics *middleware.Metrics

	// MetricsPath is where Metrics are exposed. Default: "/metrics".
	MetricsPath string

	// Middleware runs after the state bag is established and before the
	// dispatcher. It may add StateFrom(ctx).InitialData entries.
	Middleware []func(http.Handler) http.Handler

	// Logger is the structured logger for the application.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
}

// StaticConfig configures static serving.
type StaticConfig struct {
	// Index is the prebuilt document served when SSR is disabled.
	// Default: "index.html".
	Index string

	// CacheControl determines caching behavior for build assets.
	// Default: CacheControlNone (no caching headers).
	CacheControl CacheControlStrategy
}

// CacheControlStrategy determines caching behavior for build assets.
type CacheControlStrategy int

const (
	// CacheControlNone adds no caching headers.
	CacheControlNone CacheControlStrategy = iota

	// CacheControlProduction marks fingerprinted files (app.5e6f.css) as
	// immutable for a year and revalidates everything else hourly.
	CacheControlProduction
)

// RouteConfig is one explicitly configured route.
type RouteConfig struct {
	// Path is a chi pattern relative to Prefix (e.g. "/github").
	Path string

	// Stream renders the route progressively.
	Stream bool

	// Enrich fetches upstream data before rendering.
	Enrich *EnrichConfig
}

// EnrichConfig names an upstream URL and the initial-data key its decoded
// JSON body is stored under.
type EnrichConfig struct {
	URL string
	Key string
}

// StreamConfig configures streamed responses.
type StreamConfig struct {
	// ChunkSize is the read buffer size. Default: 32 KiB.
	ChunkSize int

	// Timeout bounds the markup stream. Zero disables it, so a Config
	// built by hand streams without a bound. DefaultConfig sets 30s.
	Timeout time.Duration
}

// Enricher fetches and decodes upstream JSON. enrich.Client satisfies it.
type Enricher interface {
	Fetch(ctx context.Context, url string) (any, error)
}

// =============================================================================
// Default Configurations
// =============================================================================

// DefaultConfig returns a Config with sensible defaults. Assets must still
// be set.
func DefaultConfig() Config {
	return Config{
		SSR:          true,
		PublicPath:   "/public/",
		ManifestName: "manifest.json",
		Static:       DefaultStaticConfig(),
		Document:     render.DefaultDocument(),
		Stream: StreamConfig{
			ChunkSize: render.DefaultChunkSize,
			Timeout:   render.DefaultStreamTimeout,
		},
		MetricsPath: "/metrics",
	}
}

// DefaultStaticConfig returns a StaticConfig with sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		Index:        "index.html",
		CacheControl: CacheControlNone,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PublicPath == "" {
		c.PublicPath = def.PublicPath
	}
	if c.ManifestName == "" {
		c.ManifestName = def.ManifestName
	}
	if c.Static.Index == "" {
		c.Static.Index = def.Static.Index
	}
	if c.Stream.ChunkSize <= 0 {
		c.Stream.ChunkSize = def.Stream.ChunkSize
	}
	if c.MetricsPath == "" {
		c.MetricsPath = def.MetricsPath
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
