package cmd

import (
	"fmt"
	"sort"

	"github.com/nyashlang/nyashc/internal/pluginabi"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [library]",
	Short: "Load a library and print its declared box types and methods",
	Long: `check loads each library listed in the manifest (or just the named one,
if given), asserts the presence of nyash_plugin_invoke, and prints each
declared (box_type, type_id, method_name -> method_id).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	m, err := pluginabi.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	names := libraryNames(m, args)
	if len(names) == 0 {
		return fmt.Errorf("no matching library in manifest %s", manifestPath)
	}

	for _, name := range names {
		if err := checkLibrary(m, name); err != nil {
			return err
		}
	}
	return nil
}

func checkLibrary(m *pluginabi.Manifest, name string) error {
	entry := m.Libraries[name]
	if err := pluginabi.CheckEngineVersion(entry, pluginabi.EngineVersion); err != nil {
		return fmt.Errorf("check %s: %w", name, err)
	}

	path, err := m.LibraryPath(name)
	if err != nil {
		return err
	}

	lib, err := pluginabi.OpenLibrary(path)
	if err != nil {
		return fmt.Errorf("check %s: %w", name, err)
	}
	defer lib.Close()

	fmt.Printf("%s (%s)\n", name, path)
	boxes := make([]string, 0, len(entry.Types))
	for box := range entry.Types {
		boxes = append(boxes, box)
	}
	sort.Strings(boxes)
	for _, box := range boxes {
		spec := entry.Types[box]
		fmt.Printf("  %s  type_id=%d abi_version=%d\n", box, spec.TypeID, spec.ABIVersion)
		methods := make([]string, 0, len(spec.Methods))
		for method := range spec.Methods {
			methods = append(methods, method)
		}
		sort.Strings(methods)
		for _, method := range methods {
			fmt.Printf("    %s -> %d\n", method, spec.Methods[method].MethodID)
		}
	}
	return nil
}

// libraryNames returns either the single named library (if args is
// non-empty) or every library in the manifest, sorted for stable output.
func libraryNames(m *pluginabi.Manifest, args []string) []string {
	if len(args) == 1 {
		if _, ok := m.Libraries[args[0]]; !ok {
			return nil
		}
		return args
	}
	names := make([]string, 0, len(m.Libraries))
	for name := range m.Libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
