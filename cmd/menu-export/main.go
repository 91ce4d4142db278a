// Command menu-export snapshots the Square catalog as gzip-compressed menu
// JSON, the same document GET /api/menu serves.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xenking/molino-storefront/internal/domain/menu"
	"github.com/xenking/molino-storefront/internal/square"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	root := &cobra.Command{
		Use:           "menu-export",
		Short:         "Export and inspect Square menu snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(exportCmd(), inspectCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func logger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	lg, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return lg
}

func exportCmd() *cobra.Command {
	var (
		cfg        square.Config
		outDir     string
		byCategory bool
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch the catalog and write menu.json.gz",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lg := logger(verbose)
			defer func() { _ = lg.Sync() }()

			fillFromEnv(&cfg, os.Getenv)
			client, err := square.New(cfg)
			if err != nil {
				return err
			}
			ctx := zctx.Base(cmd.Context(), lg)

			start := time.Now()
			m, err := menu.NewReader(client).FetchMenu(ctx)
			if err != nil {
				return errors.Wrap(err, "fetch menu")
			}
			lg.Info("Fetched menu",
				zap.Int("items", len(m.Items)),
				zap.Int("categories", len(m.Categories)),
				zap.Duration("took", time.Since(start)),
			)

			files, err := writeSnapshot(ctx, outDir, m, byCategory)
			if err != nil {
				return err
			}
			for _, f := range files {
				lg.Info("Wrote snapshot", zap.String("path", f))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.AccessToken, "access-token", "", "Square access token (or SQUARE_ACCESS_TOKEN)")
	f.StringVar(&cfg.LocationID, "location-id", "", "Square location id (or SQUARE_LOCATION_ID)")
	f.StringVar(&cfg.Environment, "environment", "", "sandbox or production (or SQUARE_ENVIRONMENT)")
	f.StringVar(&cfg.Version, "square-version", square.DefaultVersion, "Square-Version header")
	f.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "Square request timeout")
	f.UintVar(&cfg.MaxAttempts, "max-attempts", 3, "Attempts per Square call")
	f.StringVarP(&outDir, "out", "o", ".", "Output directory")
	f.BoolVar(&byCategory, "by-category", false, "Also write one snapshot per category")
	f.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print a summary of a menu snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readSummary(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d items in %d categories\n", s.Items, len(s.Categories))
			for _, c := range s.Categories {
				fmt.Fprintf(out, "  %s\t%d\n", c.Name, c.Items)
			}
			return nil
		},
	}
}

// fillFromEnv applies the vendor's documented variables to unset fields.
func fillFromEnv(cfg *square.Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if *dst == "" {
			*dst = getenv(key)
		}
	}
	set(&cfg.AccessToken, "SQUARE_ACCESS_TOKEN")
	set(&cfg.LocationID, "SQUARE_LOCATION_ID")
	set(&cfg.Environment, "SQUARE_ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = square.EnvSandbox
	}
}
