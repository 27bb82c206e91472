// Package main is the entry point for the pgshape binary.
package main

import (
	"os"

	"pgshape/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
