package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/ssrdoc"
	"github.com/vango-dev/ssrdoc/internal/config"
	"github.com/vango-dev/ssrdoc/internal/errors"
	"github.com/vango-dev/ssrdoc/pkg/assets"
	"github.com/vango-dev/ssrdoc/pkg/engine"
	"github.com/vango-dev/ssrdoc/pkg/engine/sidecar"
	"github.com/vango-dev/ssrdoc/pkg/enrich"
	"github.com/vango-dev/ssrdoc/pkg/middleware"
	"github.com/vango-dev/ssrdoc/pkg/render"
)

// loadConfig reads the file at path, or looks for one in the working
// directory when path is empty. Environment overrides apply either way.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadOrDefault(".")
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.New("E050").
			WithDetail(fmt.Sprintf("Unknown log level %q.", level)).
			WithSuggestion("Use debug, info, warn or error")
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errors.New("E050").
			WithDetail(fmt.Sprintf("Unknown log format %q.", format)).
			WithSuggestion("Use text or json")
	}
}

// openAssets returns the build output: an S3 bucket when one is
// configured, the local directory otherwise. Bucket credentials and the
// default region come from the standard AWS chain (environment, shared
// profiles, SSO, ECS/EKS task roles, instance metadata).
func openAssets(ctx context.Context, cfg *config.Config) (fs.FS, error) {
	if cfg.Assets.Bucket == "" {
		return assets.Dir(cfg.AssetsPath())
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Assets.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Assets.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.New("E005").
			WithDetail(fmt.Sprintf("Could not load AWS configuration for bucket %q.", cfg.Assets.Bucket)).
			Wrap(err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Assets.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Assets.Endpoint)
			o.UsePathStyle = true
		}
	})

	return assets.NewS3FS(client, cfg.Assets.Bucket, cfg.Assets.BucketPrefix), nil
}

// appConfig converts the file configuration into an ssrdoc.Config.
func appConfig(cfg *config.Config, fsys fs.FS, logger *slog.Logger) ssrdoc.Config {
	doc := render.DefaultDocument()
	if cfg.Document.Title != "" {
		doc.Title = cfg.Document.Title
	}
	if cfg.Document.Lang != "" {
		doc.Lang = cfg.Document.Lang
	}
	if cfg.Document.ContainerID != "" {
		doc.ContainerID = cfg.Document.ContainerID
	}
	if cfg.Document.DataGlobal != "" {
		doc.DataGlobal = cfg.Document.DataGlobal
	}
	if cfg.Document.RuntimeEntry != "" {
		doc.RuntimeEntry = cfg.Document.RuntimeEntry
	}
	if cfg.Document.AppEntry != "" {
		doc.AppEntry = cfg.Document.AppEntry
	}

	routes := make([]ssrdoc.RouteConfig, 0, len(cfg.Routes))
	for _, r := range cfg.Routes {
		route := ssrdoc.RouteConfig{Path: r.Path, Stream: r.Stream}
		if r.Enrich != nil {
			route.Enrich = &ssrdoc.EnrichConfig{URL: r.Enrich.URL, Key: r.Enrich.Key}
		}
		routes = append(routes, route)
	}

	cacheControl := ssrdoc.CacheControlProduction
	if cfg.DevMode {
		cacheControl = ssrdoc.CacheControlNone
	}

	return ssrdoc.Config{
		SSR:          cfg.SSR,
		DevMode:      cfg.DevMode,
		HotReload:    cfg.HotReload,
		Prefix:       cfg.Prefix,
		PublicPath:   cfg.PublicPath,
		Assets:       fsys,
		ManifestName: cfg.Assets.Manifest,
		Static: ssrdoc.StaticConfig{
			Index:        cfg.Assets.Index,
			CacheControl: cacheControl,
		},
		Document: doc,
		Routes:   routes,
		Stream: ssrdoc.StreamConfig{
			ChunkSize: cfg.Stream.ChunkSize,
			Timeout:   cfg.StreamTimeout(),
		},
		MetricsPath: cfg.Metrics.Path,
		Logger:      logger,
	}
}

// buildApp wires the sidecar, the enrichment client and metrics around
// the build output and returns the ready App.
func buildApp(cfg *config.Config, fsys fs.FS, logger *slog.Logger, reg prometheus.Registerer) (*ssrdoc.App, error) {
	appCfg := appConfig(cfg, fsys, logger)

	var eng engine.Engine
	if cfg.SSR {
		manifest, err := assets.LoadFS(fsys, cfg.Assets.Manifest)
		if err != nil {
			return nil, err
		}
		appCfg.Manifest = manifest

		client, err := sidecar.New(sidecar.Options{
			Addr:     cfg.Sidecar.Addr,
			Timeout:  cfg.SidecarTimeout(),
			Manifest: manifest,
			Resolver: assets.NewResolver(manifest, cfg.PublicPath),
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		eng = client
	}

	for _, r := range cfg.Routes {
		if r.Enrich != nil {
			appCfg.Enricher = enrich.New(enrich.Options{
				UserAgent:    cfg.Enrich.UserAgent,
				Timeout:      cfg.EnrichTimeout(),
				MaxBodyBytes: cfg.Enrich.MaxBodyBytes,
				Logger:       logger,
			})
			break
		}
	}

	if cfg.Metrics.Enabled {
		appCfg.Metrics = middleware.NewMetrics(middleware.WithRegistry(reg))
	}

	return ssrdoc.New(appCfg, eng)
}
