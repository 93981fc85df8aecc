package cmd

import (
	"github.com/spf13/cobra"
)

var manifestPath string

var rootCmd = &cobra.Command{
	Use:   "nyash-plugin-tester",
	Short: "Exercise BID-1 plugins against a wire manifest",
	Long: `nyash-plugin-tester loads the libraries declared in a wire manifest and
drives their nyash_plugin_invoke entry point directly, without the rest of
the compiler/runtime, to validate a plugin build in isolation.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "nyash.plugins.toml", "path to the wire manifest")
}
