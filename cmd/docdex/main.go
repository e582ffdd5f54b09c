// docdex is an incremental semantic index over a local document tree,
// served to AI clients via MCP and to humans via the CLI.
package main

import (
	"fmt"
	"os"

	"github.com/docdex/docdex/cmd/docdex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
