package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ferrite/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "ferrite",
	Short: "Ownership and lifetime checker for C++ programs",
	Long:  `Ferrite analyzes serialized C++ programs for ownership, borrowing, and lifetime violations`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
