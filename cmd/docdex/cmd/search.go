package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/ui"
)

func newSearchCmd() *cobra.Command {
	var limit int
	var categories []string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			query := strings.Join(args, " ")
			results, err := app.indexer.Query(cmd.Context(), query, categories, limit)
			if err != nil {
				return err
			}

			styles := ui.ForStdout()
			if len(results) == 0 {
				fmt.Println(styles.Label.Render("No results."))
				return nil
			}

			for i, r := range results {
				where := r.Collection
				if r.Page > 0 {
					where = fmt.Sprintf("%s, page %d", r.Collection, r.Page)
				}
				fmt.Printf("%s %s %s\n",
					styles.Score.Render(fmt.Sprintf("%d. [%.3f]", i+1, r.Score)),
					styles.Path.Render(r.SourceFile),
					styles.Label.Render("("+where+")"))
				if r.Section != "" {
					fmt.Printf("   %s\n", styles.Label.Render("§ "+r.Section))
				}
				fmt.Printf("   %s\n\n", snippet(r.Text, 200))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum results (default from config)")
	cmd.Flags().StringSliceVarP(&categories, "collection", "c", nil, "Collections to search (primary, general)")
	return cmd
}

// snippet truncates text for terminal display.
func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
