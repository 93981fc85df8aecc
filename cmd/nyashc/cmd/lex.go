package cmd

import (
	"fmt"

	"github.com/nyashlang/nyashc/internal/lexer"
	"github.com/spf13/cobra"
)

var lexCmd = &cobra.Command{
	Use:   "lex <file>",
	Short: "Tokenize a Nyash source file and print the resulting tokens",
	Args:  cobra.ExactArgs(1),
	RunE:  runLex,
}

func init() {
	rootCmd.AddCommand(lexCmd)
}

func runLex(cmd *cobra.Command, args []string) error {
	source, err := readSource(args[0])
	if err != nil {
		return reportFatal(cmd, "lex", args[0], err)
	}
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return reportFatal(cmd, "lex", args[0], fmt.Errorf("lex %s: %w", args[0], err))
	}
	for _, tok := range tokens {
		fmt.Println(tok.String())
	}
	return nil
}
