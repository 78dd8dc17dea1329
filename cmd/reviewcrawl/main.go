// cmd/reviewcrawl/main.go
package main

import (
	"github.com/echo-works/reviewcrawl/internal/cli"
)

func main() {
	// Execute CLI (app initialization happens inside cli.Execute; the run
	// command installs its own signal handling so an interrupt still
	// exports whatever loaded)
	cli.Execute()
}
