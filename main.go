// Package main is the entry point for the retsync CLI application.
// It provides RETS client and PostgreSQL sync capabilities.
package main

import (
	"retsync/cli/cmd"
)

// main is the entry point for the retsync CLI application.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
