package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	configPath string
	addr       string
	dev        bool
	noSSR      bool
	logLevel   string
	logFormat  string
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the document server",
		Long: `Start the document server.

Configuration is read from ssrdoc.json or ssrdoc.yaml in the working
directory (or --config), then overridden by environment variables and
finally by flags.

Examples:
  ssrdoc serve
  ssrdoc serve --addr=:8080 --dev
  ssrdoc serve --config=deploy/ssrdoc.yaml --log-format=json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to the configuration file")
	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "Address to listen on (default from config)")
	cmd.Flags().BoolVar(&opts.dev, "dev", false, "Reference the runtime bundle instead of inlining it")
	cmd.Flags().BoolVar(&opts.noSSR, "no-ssr", false, "Serve the prebuilt index document for every route")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	logger, err := newLogger(os.Stderr, opts.logLevel, opts.logFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.dev {
		cfg.DevMode = true
	}
	if opts.noSSR {
		cfg.SSR = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	addr := opts.addr
	if addr == "" {
		addr = cfg.Addr()
	}

	if ctx == nil {
		ctx = context.Background()
	}

	fsys, err := openAssets(ctx, cfg)
	if err != nil {
		return err
	}

	app, err := buildApp(cfg, fsys, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	success("Serving on http://%s", displayAddr(addr))
	info("SSR: %v  dev: %v  assets: %s", cfg.SSR, cfg.DevMode, assetsLabel(cfg.Assets.Bucket, cfg.AssetsPath()))
	if !cfg.SSR && cfg.HotReload {
		warn("SSR and the static index are both disabled; every route answers with an empty document")
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Println("\n  Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func assetsLabel(bucket, dir string) string {
	if bucket != "" {
		return "s3://" + bucket
	}
	return dir
}
