package cmd

import (
	"fmt"

	"github.com/nyashlang/nyashc/internal/pluginabi"
	"github.com/spf13/cobra"
)

// lifecycleMethods are invoked, in order, when the manifest declares them,
// between birth and fini (spec.md §4.10).
var lifecycleMethods = []string{"open", "write", "close", "cloneSelf", "copyFrom"}

var lifecycleCmd = &cobra.Command{
	Use:   "lifecycle <BoxType>",
	Short: "Birth an instance of a box type, exercise its lifecycle methods, then fini it",
	Args:  cobra.ExactArgs(1),
	RunE:  runLifecycle,
}

func init() {
	rootCmd.AddCommand(lifecycleCmd)
}

func runLifecycle(cmd *cobra.Command, args []string) error {
	boxType := args[0]
	m, err := pluginabi.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	libName, spec, err := findBoxType(m, boxType)
	if err != nil {
		return err
	}

	path, err := m.LibraryPath(libName)
	if err != nil {
		return err
	}
	lib, err := pluginabi.OpenLibrary(path)
	if err != nil {
		return fmt.Errorf("lifecycle %s: %w", boxType, err)
	}
	defer lib.Close()

	instanceID, err := lib.Birth(spec.TypeID)
	if err != nil {
		return fmt.Errorf("birth %s: %w", boxType, err)
	}
	fmt.Printf("birth %s -> instance %d\n", boxType, instanceID)

	for _, name := range lifecycleMethods {
		method, ok := spec.Methods[name]
		if !ok {
			continue
		}
		payload, err := pluginabi.Encode(nil)
		if err != nil {
			return err
		}
		result, err := lib.Invoke(spec.TypeID, method.MethodID, instanceID, payload)
		if err != nil {
			return fmt.Errorf("%s %s: %w", name, boxType, err)
		}
		fmt.Printf("%s -> %d result bytes\n", name, len(result))
	}

	if err := lib.Fini(spec.TypeID, instanceID); err != nil {
		return fmt.Errorf("fini %s: %w", boxType, err)
	}
	fmt.Printf("fini %s instance %d\n", boxType, instanceID)
	return nil
}

func findBoxType(m *pluginabi.Manifest, boxType string) (string, pluginabi.BoxTypeSpec, error) {
	for libName, entry := range m.Libraries {
		if spec, ok := entry.Types[boxType]; ok {
			return libName, spec, nil
		}
	}
	return "", pluginabi.BoxTypeSpec{}, fmt.Errorf("no library in manifest declares box type %q", boxType)
}
