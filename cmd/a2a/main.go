package main

import (
	"context"
	"fmt"
	"os"

	"github.com/avivsinai/a2a-mailbox/internal/cli"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && isVersionArg(os.Args[1]) {
		if _, err := fmt.Fprintln(os.Stdout, version); err != nil {
			os.Exit(cli.ExitError)
		}
		return
	}
	if err := cli.Run(context.Background(), version, os.Args[1:]); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}

func isVersionArg(arg string) bool {
	switch arg {
	case "--version", "-v":
		return true
	default:
		return false
	}
}
