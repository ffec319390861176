package main

import (
	"fmt"
	"os"

	"github.com/sourceplane/processagent/internal/metrics"
	"github.com/sourceplane/processagent/internal/runner"
	"github.com/spf13/cobra"
)

var (
	runOutDir string
	runFormat string
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run <spec|dir>...",
	Short: "Plan a batch of part specs",
	Long:  "Plan every part spec given (files, or directories of .yaml/.yml/.json specs) and write each result and its .nc program to disk.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSpecs(cmd, args)
	},
}

func registerRunCommand(root *cobra.Command) {
	root.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runOutDir, "out-dir", "o", "", "Directory for results (default: next to each spec)")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "json", "Result format (json/yaml)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Plan without writing any files")
}

func runSpecs(cmd *cobra.Command, paths []string) error {
	if runFormat != "json" && runFormat != "yaml" {
		return fmt.Errorf("unsupported format %q (use json or yaml)", runFormat)
	}

	p, err := newPipeline(metrics.Nop{})
	if err != nil {
		return err
	}

	if runDryRun {
		fmt.Println("□ Dry-run mode enabled. No files will be written.")
	}

	r := runner.NewRunner(p, specLoad, runOutDir, runFormat, os.Stdout, runDryRun)
	summary, err := r.Run(commandContext(cmd), paths)
	if err != nil {
		return err
	}

	fmt.Printf("✓ %d valid, %d invalid, %d rejected\n", summary.Valid, summary.Invalid, summary.Rejected)
	if summary.Failed() {
		return fmt.Errorf("%d of %d specs did not produce a valid plan",
			summary.Invalid+summary.Rejected, len(summary.Files))
	}
	return nil
}
