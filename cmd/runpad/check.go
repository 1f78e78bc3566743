package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/runpad/internal/smoke"
)

var parallelFlag int

var checkCmd = &cobra.Command{
	Use:   "check [scenarios.toml]",
	Short: "Run smoke scenarios through the relay",
	Long: `Run each scenario through the relay and compare the output.

Without a file, every language's sample is run and checked against the
greeting it prints.

Examples:
  runpad check
  runpad check scenarios.toml --parallel 8`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVarP(&parallelFlag, "parallel", "p", 4, "Scenarios in flight at once")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	scenarios := smoke.Defaults(cat)
	if len(args) == 1 {
		scenarios, err = smoke.Load(args[0])
		if err != nil {
			return err
		}
	}

	relayClient, closeRelay, err := openRelay(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeRelay()

	results := smoke.Run(cmd.Context(), cat, relayClient, scenarios, parallelFlag)
	for _, r := range results {
		if r.Passed {
			fmt.Printf("%s %s %s\n", success.Sprint("OKAY"), r.Scenario.Name, dim.Sprint(r.Runtime))
			continue
		}
		fmt.Printf("%s %s: %s\n", failure.Sprint("FAIL"), r.Scenario.Name, r.Reason)
	}

	if n := smoke.Failed(results); n > 0 {
		return fmt.Errorf("%d of %d scenarios failed", n, len(results))
	}
	return nil
}
