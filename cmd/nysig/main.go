// Command nysig evaluates market analysis snapshots against trading rules.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/nysig/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
