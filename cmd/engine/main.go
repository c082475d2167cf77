// Package main is the entry point for the engine CLI.
package main

import (
	"fmt"
	"os"

	"github.com/jmvldz/enginebuilder/internal/cli"
)

func main() {
	err := cli.Execute(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.ExitCode(err))
}
