// Command nyashc is the Nyash compiler driver: lex/parse/mir/optimize/wat
// pipeline stages exposed as subcommands, plus a watch mode that
// recompiles on source changes.
package main

import (
	"fmt"
	"os"

	"github.com/nyashlang/nyashc/cmd/nyashc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
