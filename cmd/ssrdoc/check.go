package main

import (
	"fmt"
	"io"
	"io/fs"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vango-dev/ssrdoc/internal/config"
	"github.com/vango-dev/ssrdoc/internal/errors"
	"github.com/vango-dev/ssrdoc/internal/jsoncodec"
	"github.com/vango-dev/ssrdoc/pkg/assets"
	"github.com/vango-dev/ssrdoc/pkg/render"
)

func checkCmd() *cobra.Command {
	var (
		configPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and the build output",
		Long: `Validate the configuration, load the manifest and read the runtime
bundle exactly as "serve" would at startup, then print the manifest's
grouped view.

Examples:
  ssrdoc check
  ssrdoc check --config=deploy/ssrdoc.yaml
  ssrdoc check --json > grouped.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			fsys, err := openAssets(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return runCheck(cmd.OutOrStdout(), cfg, fsys, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print only the grouped manifest as JSON")

	return cmd
}

func runCheck(w io.Writer, cfg *config.Config, fsys fs.FS, asJSON bool) error {
	status := w
	if asJSON {
		status = io.Discard
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Path() != "" {
		fmt.Fprintf(status, "\033[32m✓\033[0m Config %s\n", cfg.Path())
	} else {
		fmt.Fprintf(status, "\033[32m✓\033[0m Config defaults (no file found)\n")
	}

	if !cfg.SSR {
		if _, err := fs.Stat(fsys, cfg.Assets.Index); err != nil {
			fmt.Fprintf(status, "\033[33m⚠\033[0m SSR disabled and %s is unavailable: empty documents will be served\n", cfg.Assets.Index)
			return nil
		}
		fmt.Fprintf(status, "\033[32m✓\033[0m SSR disabled, serving %s\n", cfg.Assets.Index)
		return nil
	}

	manifest, err := assets.LoadFS(fsys, cfg.Assets.Manifest)
	if err != nil {
		return err
	}
	fmt.Fprintf(status, "\033[32m✓\033[0m Manifest %s (%d entries)\n", cfg.Assets.Manifest, manifest.Len())

	runtimeEntry := render.DefaultDocument().RuntimeEntry
	if cfg.Document.RuntimeEntry != "" {
		runtimeEntry = cfg.Document.RuntimeEntry
	}
	if cfg.DevMode {
		fmt.Fprintf(status, "\033[32m✓\033[0m Runtime %s referenced by URL (dev mode)\n", runtimeEntry)
	} else {
		src, err := assets.InlineSource(fsys, manifest, runtimeEntry)
		if err != nil {
			return err
		}
		fmt.Fprintf(status, "\033[32m✓\033[0m Runtime %s inlined (%d bytes)\n", runtimeEntry, len(src))
	}

	grouped := manifest.Grouped()
	if asJSON {
		out, err := jsoncodec.MarshalIndent(grouped, "", "  ")
		if err != nil {
			return errors.New("E050").Wrap(err)
		}
		_, err = fmt.Fprintf(w, "%s\n", out)
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Styles:")
	for _, s := range grouped.Styles {
		fmt.Fprintf(w, "    %s\n", s)
	}
	fmt.Fprintln(w, "  Entries:")
	names := make([]string, 0, len(grouped.Entries))
	for name := range grouped.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "    %-16s %s\n", name, grouped.Entries[name])
	}

	return nil
}
