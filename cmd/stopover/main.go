// Command stopover runs virtual clock scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/stopover/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
