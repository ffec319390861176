package main

import (
	"fmt"
	"path/filepath"

	"github.com/sourceplane/processagent/internal/metrics"
	"github.com/sourceplane/processagent/internal/render"
	"github.com/spf13/cobra"
)

var (
	planOutput string
	planFormat string
	planView   string
	planDebug  bool
)

var planCmd = &cobra.Command{
	Use:   "plan <spec>",
	Short: "Generate a machining plan and program for one part spec",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return generatePlan(cmd, args[0])
	},
}

func registerPlanCommand(root *cobra.Command) {
	root.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&planOutput, "output", "o", "", "Write the result to this file (program goes next to it as .nc)")
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "json", "Output format when printing to stdout (json/yaml)")
	planCmd.Flags().StringVar(&planView, "view", "", "Print a view of the result (plan/errors/gcode)")
	planCmd.Flags().BoolVar(&planDebug, "debug", false, "Print a debug dump of the result")
}

func generatePlan(cmd *cobra.Command, specFile string) error {
	fmt.Println("□ Loading part spec...")
	spec, err := specLoad.LoadPartSpec(specFile)
	if err != nil {
		return err
	}

	p, err := newPipeline(metrics.Nop{})
	if err != nil {
		return err
	}

	fmt.Println("□ Planning...")
	result, err := p.Run(commandContext(cmd), spec)
	if err != nil {
		return fmt.Errorf("failed to plan %s: %w", specFile, err)
	}

	renderer := render.NewRenderer()
	if planDebug {
		fmt.Println("\n" + renderer.DebugDump(result))
	}

	if planOutput != "" {
		if err := renderer.WriteResult(result, planOutput); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		fmt.Printf("✓ Saved to: %s\n", planOutput)

		programPath := render.ProgramPath(planOutput)
		written, err := renderer.WriteProgram(result, programPath)
		if err != nil {
			return fmt.Errorf("failed to write program: %w", err)
		}
		if written {
			fmt.Printf("✓ Program saved to: %s\n", programPath)
		}
	} else if planView == "" {
		var data []byte
		switch planFormat {
		case "yaml", "yml":
			data, err = renderer.RenderYAML(result)
		default:
			data, err = renderer.RenderJSON(result)
		}
		if err != nil {
			return fmt.Errorf("failed to render result: %w", err)
		}
		fmt.Println(string(data))
	}

	if planView != "" {
		viewer := render.NewPlanViewer(result)
		switch planView {
		case "errors":
			fmt.Println("\n" + viewer.ViewErrors())
		case "gcode":
			if result.GCode != nil {
				fmt.Println("\n" + *result.GCode)
			}
		default:
			fmt.Println("\n" + viewer.ViewPlan())
		}
	}

	if !result.Valid {
		return fmt.Errorf("plan for %s is invalid (%d errors)", filepath.Base(specFile), len(result.Errors))
	}
	fmt.Printf("✓ Plan generated with %d steps (%s)\n", len(result.Plan), result.Strategy)
	return nil
}
