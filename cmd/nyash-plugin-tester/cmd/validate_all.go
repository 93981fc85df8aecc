package cmd

import (
	"github.com/nyashlang/nyashc/internal/pluginabi"
	"github.com/spf13/cobra"
)

var validateAllCmd = &cobra.Command{
	Use:   "validate-all",
	Short: "Run check over every library in the manifest",
	Args:  cobra.NoArgs,
	RunE:  runValidateAll,
}

func init() {
	rootCmd.AddCommand(validateAllCmd)
}

func runValidateAll(cmd *cobra.Command, args []string) error {
	m, err := pluginabi.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	for _, name := range libraryNames(m, nil) {
		if err := checkLibrary(m, name); err != nil {
			return err
		}
	}
	return nil
}
