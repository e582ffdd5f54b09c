package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/ui"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index [path]",
		Short: "Index the document tree (incremental)",
		Long: `Index walks the documents directory, removes entries for deleted
files, indexes new and changed files, and skips unchanged ones by
content hash. Safe to run repeatedly. With a file argument, indexes
just that file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			target := app.cfg.Paths.DocsRoot
			if len(args) == 1 {
				target, err = filepath.Abs(args[0])
				if err != nil {
					return err
				}
			}

			info, err := os.Stat(target)
			if err != nil {
				return err
			}

			styles := ui.ForStdout()

			if !info.IsDir() {
				chunks, skipped, err := app.indexer.IndexPath(cmd.Context(), target)
				if err != nil {
					return err
				}
				if skipped {
					fmt.Printf("%s %s unchanged\n", styles.Success.Render("Skipped:"), target)
				} else {
					fmt.Printf("%s %s (%d chunks)\n", styles.Success.Render("Indexed:"), target, chunks)
				}
				return nil
			}

			fmt.Printf("%s %s\n", styles.Header.Render("Indexing"), target)

			summary, err := app.indexer.IndexDirectory(cmd.Context(), target)
			if err != nil {
				return err
			}

			fmt.Printf("%s %d indexed, %d skipped, %d removed, %d errors (of %d files)\n",
				styles.Success.Render("Done:"),
				summary.Indexed, summary.Skipped, summary.Removed,
				summary.Errors, summary.Total)
			if summary.Errors > 0 {
				fmt.Println(styles.Warning.Render("Some files failed; see the log for details."))
			}
			return nil
		},
	}
}
