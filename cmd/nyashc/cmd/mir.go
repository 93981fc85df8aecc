package cmd

import (
	"fmt"

	"github.com/nyashlang/nyashc/internal/mir"
	"github.com/nyashlang/nyashc/internal/optimizer"
	"github.com/spf13/cobra"
)

var mirOptimize bool

var mirCmd = &cobra.Command{
	Use:   "mir <file>",
	Short: "Lower a Nyash source file to MIR and print it",
	Args:  cobra.ExactArgs(1),
	RunE:  runMIR,
}

func init() {
	rootCmd.AddCommand(mirCmd)
	mirCmd.Flags().BoolVar(&mirOptimize, "optimize", false, "run the optimizer pipeline before printing")
}

func runMIR(cmd *cobra.Command, args []string) error {
	m, err := buildModule(args[0])
	if err != nil {
		return reportFatal(cmd, "mir", args[0], err)
	}
	if mirOptimize {
		stats := optimizer.Run(m)
		if errs := mir.VerifyModule(m); len(errs) > 0 {
			return reportFatal(cmd, "mir", args[0], fmt.Errorf("verify %s after optimize: %d ownership error(s), first: %v", args[0], len(errs), errs[0]))
		}
		fmt.Printf("; dce=%d cse=%d reorder=%d intrinsic=%d boxfield=%d\n",
			stats.DeadCode, stats.CSE, stats.Reorder, stats.Intrinsic, stats.BoxField)
	}
	fmt.Print(m.String())
	return nil
}
