// Package main is the entry point for the dupm CLI application.
// It initializes all subcommands and executes the root command.
package main

import (
	"github.com/dupmtree/dupm/cmd"
	_ "github.com/dupmtree/dupm/cmd/calc"
	_ "github.com/dupmtree/dupm/cmd/diff"
	_ "github.com/dupmtree/dupm/cmd/find"
	_ "github.com/dupmtree/dupm/cmd/hash"
	_ "github.com/dupmtree/dupm/cmd/internalworker"
	_ "github.com/dupmtree/dupm/cmd/size"
)

// main is the entry point of the application.
// It executes the root command which handles all CLI interactions.
func main() {
	cmd.Execute()
}
