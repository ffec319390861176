package main

import (
	"fmt"

	"github.com/sourceplane/processagent/internal/normalize"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [spec]...",
	Short: "Validate part specs and the knowledge base against their schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateFiles(args)
	},
}

func registerValidateCommand(root *cobra.Command) {
	root.AddCommand(validateCmd)
}

func validateFiles(specFiles []string) error {
	// The knowledge base was schema-checked while loading in setup
	source := cfg.KnowledgeBase.Path
	if source == "" {
		source = "bundled"
	}
	fmt.Printf("✓ Knowledge base is valid (%s: %d materials, %d tools)\n",
		source, len(knowledge.MaterialKeys()), len(knowledge.ToolKeys()))

	failed := 0
	for _, file := range specFiles {
		fmt.Printf("□ Validating %s...\n", file)
		spec, err := specLoad.LoadPartSpec(file)
		if err == nil {
			_, err = normalize.PartSpec(spec)
		}
		if err != nil {
			failed++
			fmt.Printf("  ✗ %v\n", err)
			continue
		}
		fmt.Printf("✓ %s is valid\n", file)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d part specs failed validation", failed, len(specFiles))
	}
	return nil
}
