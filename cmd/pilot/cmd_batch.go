package main

import (
	"fmt"
	"sdlcpilot/internal/batch"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var batchConcurrency int

// batchCmd generates test cases for every requirement in a YAML file
var batchCmd = &cobra.Command{
	Use:   "batch <file.yaml>",
	Short: "Generate test cases for many requirements",
	Long: `Reads a YAML file of requirements and generates test cases for each one
concurrently. Items succeed or fail independently.

File format:
  concurrency: 4
  items:
    - name: login
      requirement: Users should be able to login with email and password.
      num_cases: 5
    - name: cart
      requirement: Cart totals include VAT.
      context: EU store
      test_types: [functional, regression]`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "Requests in flight (default from file or config)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file, err := batch.Load(args[0])
	if err != nil {
		return err
	}

	limit := cfg.Batch.Concurrency
	if file.Concurrency > 0 {
		limit = file.Concurrency
	}
	if batchConcurrency > 0 {
		limit = batchConcurrency
	}
	logger.Debug("Running batch", zap.Int("items", len(file.Items)), zap.Int("concurrency", limit))

	results := batch.Run(commandContext(cmd), newClient(), file.Items, limit)

	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "FAIL  %-20s %s\n", r.Name, r.Err)
			continue
		}
		fmt.Fprintf(out, "OK    %-20s %d test cases (%v)\n", r.Name, len(r.Response.TestCases), r.Duration.Round(time.Millisecond))
	}

	ok, failed := batch.Summarize(results)
	fmt.Fprintf(out, "\n%d succeeded, %d failed\n", ok, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d items failed", failed, len(results))
	}
	return nil
}
