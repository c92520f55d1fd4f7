// devstart runs a bundler and a server-side rendering server side by side
// for local development.
package main

import (
	"os"

	"github.com/hupe1980/devstart/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
