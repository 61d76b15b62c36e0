package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "overlayctl",
	Short: "Tools for timed comment overlay files",
	Long: `overlayctl works with comment overlay files in the <d p="...">text</d> format.
It can sort files by comment time and replay them against a simulated
playback clock to show when each comment would appear and disappear.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(sortCmd)
	rootCmd.AddCommand(simulateCmd)
}
