// Command nyash-plugin-tester exercises BID-1 plugins against a wire
// manifest without the full toolchain runtime.
package main

import (
	"fmt"
	"os"

	"github.com/nyashlang/nyashc/cmd/nyash-plugin-tester/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
