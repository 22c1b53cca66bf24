// Package cmd contains the noor command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "noor",
	Short: "noor - grounded Islamic knowledge Q&A",
	Long: `noor answers questions about Islam grounded in an indexed corpus of
Quranic verses, graded hadith and scholarly texts. Answers cite their
sources and carry a confidence grade.

Run "noor serve" to start the HTTP API, or "noor ask" for a one-off
question from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
