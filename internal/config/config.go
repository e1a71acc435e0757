package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/ssrdoc/internal/errors"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "ssrdoc.json"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultPublicPath is the URL path the client build is served under.
	DefaultPublicPath = "/public/"

	// DefaultAssetsDir is the default build output directory.
	DefaultAssetsDir = "build/app"

	// DefaultSidecar is the default render sidecar address.
	DefaultSidecar = "http://127.0.0.1:3001"

	// DefaultEnrichURL is the upstream used by the default /github route.
	DefaultEnrichURL = "https://api.github.com/repos/jasonboy/wechat-jssdk/branches"
)

// FileNames lists the configuration files Load looks for, in order.
var FileNames = []string{ConfigFileName, "ssrdoc.yaml", "ssrdoc.yml"}

// Config represents the complete ssrdoc configuration file.
type Config struct {
	// Host is the interface to bind to. Empty binds all interfaces.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Port is the server port.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// SSR enables server-side rendering. When false the prebuilt index
	// document is served for every route.
	SSR bool `json:"ssr" yaml:"ssr"`

	// DevMode references the runtime bundle by URL instead of inlining it.
	DevMode bool `json:"devMode,omitempty" yaml:"devMode,omitempty"`

	// HotReload means the client build is served by a hot-reloading dev
	// server, so no static index document is loaded.
	HotReload bool `json:"hotReload,omitempty" yaml:"hotReload,omitempty"`

	// Prefix mounts all routes below a path, e.g. "/app".
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// PublicPath is the URL prefix of build assets.
	PublicPath string `json:"publicPath,omitempty" yaml:"publicPath,omitempty"`

	// Assets locates the client build output.
	Assets AssetsConfig `json:"assets,omitempty" yaml:"assets,omitempty"`

	// Sidecar configures the render process.
	Sidecar SidecarConfig `json:"sidecar,omitempty" yaml:"sidecar,omitempty"`

	// Document overrides document defaults.
	Document DocumentConfig `json:"document,omitempty" yaml:"document,omitempty"`

	// Stream configures streamed responses.
	Stream StreamConfig `json:"stream,omitempty" yaml:"stream,omitempty"`

	// Enrich configures the upstream fetcher.
	Enrich EnrichConfig `json:"enrich,omitempty" yaml:"enrich,omitempty"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Routes lists the explicitly rendered routes.
	Routes []RouteConfig `json:"routes,omitempty" yaml:"routes,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// AssetsConfig locates the build output. Bucket takes precedence over Dir.
type AssetsConfig struct {
	Dir          string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Bucket       string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	BucketPrefix string `json:"bucketPrefix,omitempty" yaml:"bucketPrefix,omitempty"`
	Region       string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint overrides the S3 endpoint (MinIO, LocalStack).
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	// Manifest is the manifest file name inside the build output.
	Manifest string `json:"manifest,omitempty" yaml:"manifest,omitempty"`

	// Index is the prebuilt document served when SSR is off.
	Index string `json:"index,omitempty" yaml:"index,omitempty"`
}

// SidecarConfig configures the render sidecar client.
type SidecarConfig struct {
	// Addr is "http://host:port" or "unix:///path.sock".
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// Timeout bounds buffered renders (e.g. "10s").
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DocumentConfig overrides document defaults.
type DocumentConfig struct {
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
	Lang         string `json:"lang,omitempty" yaml:"lang,omitempty"`
	ContainerID  string `json:"containerId,omitempty" yaml:"containerId,omitempty"`
	DataGlobal   string `json:"dataGlobal,omitempty" yaml:"dataGlobal,omitempty"`
	RuntimeEntry string `json:"runtimeEntry,omitempty" yaml:"runtimeEntry,omitempty"`
	AppEntry     string `json:"appEntry,omitempty" yaml:"appEntry,omitempty"`
}

// StreamConfig configures streamed responses.
type StreamConfig struct {
	// ChunkSize is the read buffer size in bytes.
	ChunkSize int `json:"chunkSize,omitempty" yaml:"chunkSize,omitempty"`

	// Timeout bounds the markup stream (e.g. "30s"). "0" disables it.
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// EnrichConfig configures the upstream fetcher.
type EnrichConfig struct {
	UserAgent    string `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	Timeout      string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxBodyBytes int64  `json:"maxBodyBytes,omitempty" yaml:"maxBodyBytes,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// RouteConfig is one rendered route.
type RouteConfig struct {
	Path   string             `json:"path" yaml:"path"`
	Stream bool               `json:"stream,omitempty" yaml:"stream,omitempty"`
	Enrich *RouteEnrichConfig `json:"enrich,omitempty" yaml:"enrich,omitempty"`
}

// RouteEnrichConfig names the upstream fetched for a route and the
// initial-data key its result is stored under.
type RouteEnrichConfig struct {
	URL string `json:"url" yaml:"url"`
	Key string `json:"key" yaml:"key"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Port:       DefaultPort,
		SSR:        true,
		PublicPath: DefaultPublicPath,
		Assets: AssetsConfig{
			Dir:      DefaultAssetsDir,
			Manifest: "manifest.json",
			Index:    "index.html",
		},
		Sidecar: SidecarConfig{
			Addr:    DefaultSidecar,
			Timeout: "10s",
		},
		Stream: StreamConfig{
			ChunkSize: 32 * 1024,
			Timeout:   "30s",
		},
		Enrich: EnrichConfig{
			Timeout: "10s",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Routes: DefaultRoutes(),
	}
}

// DefaultRoutes returns the built-in route table: /github is streamed and
// enriched with the branch list of a public repository.
func DefaultRoutes() []RouteConfig {
	return []RouteConfig{
		{
			Path:   "/github",
			Stream: true,
			Enrich: &RouteEnrichConfig{URL: DefaultEnrichURL, Key: "github"},
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for ssrdoc.json, ssrdoc.yaml and ssrdoc.yml, in that order.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E041").
		WithDetail("No ssrdoc.json or ssrdoc.yaml found in " + dir).
		WithSuggestion("Create ssrdoc.json or pass --config")
}

// LoadFile reads configuration from the specified file path. The format
// follows the extension: .yaml/.yml is YAML, anything else JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E041").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("E040").Wrap(err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E040").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E040").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
		}
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// LoadOrDefault loads the configuration file in dir, falling back to the
// defaults when there is none. Environment overrides are applied either way.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if err != nil {
		if errors.Code(err) != "E041" {
			return nil, err
		}
		cfg = New()
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	def := New()

	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.PublicPath == "" {
		c.PublicPath = def.PublicPath
	}
	if c.Assets.Dir == "" {
		c.Assets.Dir = def.Assets.Dir
	}
	if c.Assets.Manifest == "" {
		c.Assets.Manifest = def.Assets.Manifest
	}
	if c.Assets.Index == "" {
		c.Assets.Index = def.Assets.Index
	}
	if c.Sidecar.Addr == "" {
		c.Sidecar.Addr = def.Sidecar.Addr
	}
	if c.Sidecar.Timeout == "" {
		c.Sidecar.Timeout = def.Sidecar.Timeout
	}
	if c.Stream.ChunkSize == 0 {
		c.Stream.ChunkSize = def.Stream.ChunkSize
	}
	if c.Stream.Timeout == "" {
		c.Stream.Timeout = def.Stream.Timeout
	}
	if c.Enrich.Timeout == "" {
		c.Enrich.Timeout = def.Enrich.Timeout
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = def.Metrics.Path
	}
}

// ApplyEnv overrides fields from environment variables:
// SSR_ENABLED, DEV_MODE, HMR_ENABLED, APP_PREFIX, PUBLIC_PATH, ASSETS_DIR,
// ASSETS_BUCKET, RENDER_SIDECAR and PORT.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	bools := []struct {
		key string
		dst *bool
	}{
		{"SSR_ENABLED", &c.SSR},
		{"DEV_MODE", &c.DevMode},
		{"HMR_ENABLED", &c.HotReload},
	}
	for _, b := range bools {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("E040").
				WithDetail(fmt.Sprintf("%s=%q is not a boolean.", b.key, v))
		}
		*b.dst = parsed
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"APP_PREFIX", &c.Prefix},
		{"PUBLIC_PATH", &c.PublicPath},
		{"ASSETS_DIR", &c.Assets.Dir},
		{"ASSETS_BUCKET", &c.Assets.Bucket},
		{"RENDER_SIDECAR", &c.Sidecar.Addr},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("E040").
				WithDetail(fmt.Sprintf("PORT=%q is not a number.", v))
		}
		c.Port = port
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.New("E040").
			WithDetail("Port must be between 0 and 65535")
	}
	if !strings.HasPrefix(c.PublicPath, "/") && !strings.Contains(c.PublicPath, "://") {
		return errors.New("E040").
			WithDetail(fmt.Sprintf("publicPath %q must be absolute or a full URL.", c.PublicPath))
	}
	if c.Prefix != "" && (!strings.HasPrefix(c.Prefix, "/") || strings.HasSuffix(c.Prefix, "/")) {
		return errors.New("E040").
			WithDetail(fmt.Sprintf("prefix %q must start with / and not end with /.", c.Prefix))
	}
	if c.Stream.ChunkSize < 0 {
		return errors.New("E040").WithDetail("stream.chunkSize must not be negative.")
	}

	for name, d := range map[string]string{
		"sidecar.timeout": c.Sidecar.Timeout,
		"stream.timeout":  c.Stream.Timeout,
		"enrich.timeout":  c.Enrich.Timeout,
	} {
		if _, err := parseDuration(d); err != nil {
			return errors.New("E040").
				WithDetail(fmt.Sprintf("%s %q is not a duration.", name, d)).
				WithSuggestion(`Use Go duration syntax such as "30s" or "1m"`)
		}
	}

	seen := make(map[string]bool)
	for _, r := range c.Routes {
		if !strings.HasPrefix(r.Path, "/") {
			return errors.New("E040").
				WithDetail(fmt.Sprintf("route path %q must start with /.", r.Path))
		}
		if seen[r.Path] {
			return errors.New("E040").
				WithDetail(fmt.Sprintf("route %q is declared twice.", r.Path))
		}
		seen[r.Path] = true
		if r.Enrich != nil && (r.Enrich.URL == "" || r.Enrich.Key == "") {
			return errors.New("E040").
				WithDetail(fmt.Sprintf("route %q: enrich needs both url and key.", r.Path))
		}
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// AssetsPath returns the build output directory, resolved against the
// config file's directory.
func (c *Config) AssetsPath() string {
	if filepath.IsAbs(c.Assets.Dir) || c.Dir() == "" {
		return c.Assets.Dir
	}
	return filepath.Join(c.Dir(), c.Assets.Dir)
}

// SidecarTimeout returns the parsed sidecar timeout.
func (c *Config) SidecarTimeout() time.Duration {
	d, _ := parseDuration(c.Sidecar.Timeout)
	return d
}

// StreamTimeout returns the parsed stream timeout. Zero disables it.
func (c *Config) StreamTimeout() time.Duration {
	d, _ := parseDuration(c.Stream.Timeout)
	return d
}

// EnrichTimeout returns the parsed enrichment timeout.
func (c *Config) EnrichTimeout() time.Duration {
	d, _ := parseDuration(c.Enrich.Timeout)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
