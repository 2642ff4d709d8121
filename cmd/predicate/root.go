package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "predicate",
	Short: "Predicate rule-expression graph engine",
	Long: `Predicate evaluates rule expressions over a shared, deduplicated
expression graph.

Rules are s-expressions built from a standard library of boolean, math,
list, filter, and host-binding operations. Identical subexpressions are
merged and evaluated once per run, constant subexpressions are folded at
load time, and each node is computed at most once per processing phase.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
