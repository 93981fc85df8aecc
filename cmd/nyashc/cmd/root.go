package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nyashc",
	Short: "Compile and inspect Nyash source files",
	Long: `nyashc drives the Nyash toolchain's lex -> parse -> MIR build ->
verify -> optimize -> WAT emit pipeline, exposing each stage as a
standalone subcommand alongside the full "build" pipeline.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colorized diagnostic output")
}
