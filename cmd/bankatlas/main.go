// Package main provides the entry point for the bankatlas CLI tool.
package main

import "github.com/bankatlas/bankatlas/cmd/bankatlas/cmd"

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
