package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"xcreator/config"
	"xcreator/internal/app"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	verbose bool
	rebuild bool
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "xcreator",
	Short: "Match brands with creators by the content they post",
	Long: `xcreator ingests X profiles into a vector store as brands (organization) or
creators (individual), embedding each from its bio and recent original posts,
and finds the closest profiles of the opposite kind.

Example usage:
  xcreator ingest nike -c organization     # Store a brand
  xcreator ingest mkbhd -c individual      # Store a creator
  xcreator match nike -c organization      # Creators closest to Nike
  xcreator serve                           # JSON API on :8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger = newLogger(os.Stderr, cfg.Logging, verbose)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./xcreator.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "workspace directory (default is current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVar(&rebuild, "rebuild", false, "clear the local store if the embedding model changed")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

func newLogger(w io.Writer, lc config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openApp builds the service handles for one command run.
func openApp() (*app.App, error) {
	a, err := app.New(rootDir, cfg, logger, app.WithRebuild(rebuild))
	if err != nil {
		return nil, err
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
