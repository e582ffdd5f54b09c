package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/ui"
)

func newCollectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List the vector collections and their chunk counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			infos, err := app.store.ListCollections(cmd.Context())
			if err != nil {
				return err
			}

			styles := ui.ForStdout()
			fmt.Println(styles.Header.Render("Collections"))
			for _, info := range infos {
				fmt.Printf("  %s  %d chunks\n",
					styles.Label.Render(fmt.Sprintf("%-8s", info.Name)), info.Count)
			}
			return nil
		},
	}
}
