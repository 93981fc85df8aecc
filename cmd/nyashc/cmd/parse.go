package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a Nyash source file and print its AST declaration summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	prog, err := parseProgram(args[0])
	if err != nil {
		return reportFatal(cmd, "parse", args[0], err)
	}
	fmt.Printf("%d top-level declaration(s)\n", len(prog.Decls))
	for _, d := range prog.Decls {
		fmt.Printf("  %T\n", d)
	}
	return nil
}
