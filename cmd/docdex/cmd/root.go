// Package cmd provides the docdex CLI commands.
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/fingerprint"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/logging"
	"github.com/docdex/docdex/internal/store"
	"github.com/docdex/docdex/pkg/version"
)

var (
	configPath string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docdex",
		Short: "Incremental semantic index over a local document tree",
		Long: `docdex indexes a directory of documents (PDF, markdown, HTML,
DOCX, plain text) into semantic vector collections, keeps the index in
sync as files change, and serves search to AI clients over MCP.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("docdex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default ~/.docdex/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCollectionsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves the config path and loads configuration.
// Resolution order: --config flag, docdex.yaml in the working
// directory, then ~/.docdex/config.yaml. Defaults apply when none exist.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat("docdex.yaml"); err == nil {
			path = "docdex.yaml"
		} else {
			path = config.DefaultConfigPath()
		}
	}
	return config.Load(path)
}

// setupLogging installs the default slog logger. Logs go to a rotating
// file under the data directory and to stderr; stdout stays clean for
// command output and the MCP stream.
func setupLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig(cfg.Paths.DataDir)
	logCfg.Level = cfg.Server.LogLevel
	if debugMode {
		logCfg.Level = "debug"
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

// app bundles the wired components behind every command.
type app struct {
	cfg      *config.Config
	embedder embed.Embedder
	store    *store.Store
	indexer  *index.Indexer
	unlock   func()
}

// newApp wires the full pipeline. The data-dir lock is held until
// Close; every command that touches the stores needs it.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	unlock, err := index.AcquireLock(cfg.Paths.DataDir)
	if err != nil {
		return nil, err
	}

	embedder, err := embed.New(ctx, cfg, slog.Default())
	if err != nil {
		unlock()
		return nil, err
	}

	s, err := store.Open(cfg.Paths.DataDir, embedder, slog.Default())
	if err != nil {
		_ = embedder.Close()
		unlock()
		return nil, err
	}

	fp, err := fingerprint.Load(cfg.FingerprintPath(), slog.Default())
	if err != nil {
		_ = s.Close()
		_ = embedder.Close()
		unlock()
		return nil, err
	}

	ix, err := index.New(cfg, s, fp, slog.Default())
	if err != nil {
		_ = s.Close()
		_ = embedder.Close()
		unlock()
		return nil, err
	}

	return &app{cfg: cfg, embedder: embedder, store: s, indexer: ix, unlock: unlock}, nil
}

// Close releases all resources in reverse wiring order.
func (a *app) Close() {
	_ = a.store.Close()
	_ = a.embedder.Close()
	a.unlock()
}
