package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the docdex version",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("docdex version %s (%s/%s)\n",
				version.Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
