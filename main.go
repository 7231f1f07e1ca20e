// The main package for the shopscraper executable.
package main

import (
	"os"

	"shopscraper/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
