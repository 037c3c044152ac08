// Command olclusterd serves clustered views of a GeoJSON point dataset over
// HTTP. It exists to exercise the library end to end; it is not a tile
// server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "olclusterd",
		Short:         "Serve clustered views of a GeoJSON point dataset",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	var cfg serveConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&cfg.data, "data", "", "path or URL of the GeoJSON dataset (required)")
	cmd.Flags().Float64Var(&cfg.distance, "distance", 20, "clustering distance in pixels")
	cmd.Flags().StringVar(&cfg.groupKey, "group-key", "", "attribute partitioning features into cluster groups")
	cmd.Flags().StringVar(&cfg.indexKey, "index-key", "", "attribute collected into cluster identifier lists")
	cmd.Flags().StringVar(&cfg.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
