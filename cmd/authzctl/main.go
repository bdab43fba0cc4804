// Package main is the entry point for the authzctl administration binary.
package main

import (
	"os"

	"github.com/charlesng35/authzd/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
