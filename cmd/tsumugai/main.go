// Command tsumugai is author and host tooling around the step interpreter:
// a terminal driver (run), a script linter (lint, with --watch), and a save
// inspector (save inspect). None of it is part of the core contract in
// internal/interp — it is a convenience shell around the same packages a
// host embedding tsumugai would import directly.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tsumugai",
	Short: "Run, lint, and inspect tsumugai visual-novel scripts",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
