// Command brewlog is a coffee tasting journal.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/brewlog/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Command failures are already reported through the output formatter.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
