package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/mcp"
	"github.com/docdex/docdex/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var noWatch bool
	var noInitialIndex bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index to AI clients over MCP (stdio)",
		Long: `Serve brings the index up to date, starts watching the documents
directory for changes, and speaks MCP on stdio. Logs go to file and
stderr; stdout is reserved for the protocol stream.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			// Ollama may still be loading the model; give it a moment
			// before the initial index pass falls back to cold calls.
			waitCtx, cancelWait := context.WithTimeout(ctx, 30*time.Second)
			if !embed.WaitAvailable(waitCtx, app.embedder, 2*time.Second) {
				slog.Default().Warn("embedder not reporting ready, continuing",
					"model", app.embedder.ModelName())
			}
			cancelWait()

			if !noInitialIndex {
				if _, err := app.indexer.IndexDirectory(ctx, app.cfg.Paths.DocsRoot); err != nil {
					return err
				}
			}

			server := mcp.NewServer(app.indexer, app.store, app.embedder, slog.Default())

			group, groupCtx := errgroup.WithContext(ctx)

			if !noWatch {
				debounce, err := app.cfg.DebounceDuration()
				if err != nil {
					return err
				}

				w := watcher.NewWatcher(app.cfg.Paths.DocsRoot, slog.Default())
				d := watcher.NewDispatcher(app.indexer, debounce,
					app.cfg.AllowedExtensions(), app.cfg.Indexing.Workers, slog.Default())

				events := w.Events()
				group.Go(func() error {
					err := w.Start(groupCtx)
					if err == context.Canceled {
						return nil
					}
					return err
				})
				group.Go(func() error {
					return d.Run(groupCtx, events)
				})
				server.SetWatching(true)
			}

			group.Go(func() error {
				return server.Run(groupCtx)
			})

			return group.Wait()
		},
	}

	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable live file watching")
	cmd.Flags().BoolVar(&noInitialIndex, "no-initial-index", false, "Skip the startup index pass")
	return cmd
}
