package main

import (
	"os"

	"github.com/felixgeelhaar/covergate/internal/cli"
)

func main() {
	logger := cli.NewLogger(os.Stderr)
	code := cli.Run(os.Args, os.Stdout, os.Stderr, cli.BuildService(os.Stdout, logger))
	os.Exit(code)
}
