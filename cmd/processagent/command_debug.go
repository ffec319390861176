package main

import (
	"fmt"

	"github.com/sourceplane/processagent/internal/normalize"
	"github.com/sourceplane/processagent/internal/planner"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var debugCmd = &cobra.Command{
	Use:   "debug <spec>",
	Short: "Show the normalized spec and the prompt sent to the LLM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return debugSpec(args[0])
	},
}

func registerDebugCommand(root *cobra.Command) {
	root.AddCommand(debugCmd)
}

func debugSpec(specFile string) error {
	spec, err := specLoad.LoadPartSpec(specFile)
	if err != nil {
		return err
	}

	normalized, err := normalize.PartSpec(spec)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("failed to render spec: %w", err)
	}
	fmt.Println("=== Normalized part spec ===")
	fmt.Print(string(data))

	prompt, err := planner.BuildPrompt(normalized, knowledge)
	if err != nil {
		return err
	}
	fmt.Println("\n=== Planning prompt ===")
	fmt.Println(prompt)

	if cfg.LLMAvailable() {
		fmt.Printf("LLM: %s (%s), timeout %s\n", cfg.LLM.Provider, cfg.LLM.ModelName(), cfg.LLMTimeout())
	} else {
		fmt.Println("LLM: disabled, rule-based planning only")
	}
	return nil
}
