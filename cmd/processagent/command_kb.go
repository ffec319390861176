package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var kbLong bool

var kbCmd = &cobra.Command{
	Use:     "kb",
	Aliases: []string{"knowledge"},
	Short:   "Inspect the machining knowledge base",
	Long:    "List the materials, tools and operations of the knowledge base. Use 'processagent kb resolve <diameter>' to see which drill a hole would get.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listKnowledgeBase()
	},
}

var kbResolveCmd = &cobra.Command{
	Use:   "resolve <diameter_mm>",
	Short: "Resolve the drill tool for a hole diameter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveDrill(args[0])
	},
}

var kbDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the knowledge base document as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(knowledge.Document())
		if err != nil {
			return fmt.Errorf("failed to render knowledge base: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

func registerKBCommand(root *cobra.Command) {
	root.AddCommand(kbCmd)
	kbCmd.AddCommand(kbResolveCmd)
	kbCmd.AddCommand(kbDumpCmd)

	kbCmd.Flags().BoolVarP(&kbLong, "long", "l", false, "Show descriptions")
}

func listKnowledgeBase() error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "Materials:")
	for _, key := range knowledge.MaterialKeys() {
		m, _ := knowledge.Material(key)
		fmt.Fprintf(w, "  %s\tS%d\tF%s\n", key, m.RecommendedRPM, strconv.FormatFloat(m.RecommendedFeedMMPerMin, 'f', -1, 64))
		if kbLong && m.Description != "" {
			fmt.Fprintf(w, "    %s\t\t\n", m.Description)
		}
	}

	fmt.Fprintln(w, "\nTools:")
	for _, key := range knowledge.ToolKeys() {
		t, _ := knowledge.Tool(key)
		dia := "-"
		if t.DiameterMM != nil {
			dia = strconv.FormatFloat(*t.DiameterMM, 'f', -1, 64) + "mm"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", key, t.Type, dia)
		if kbLong && t.Description != "" {
			fmt.Fprintf(w, "    %s\t\t\n", t.Description)
		}
	}

	fmt.Fprintln(w, "\nOperations:")
	for _, key := range knowledge.OperationKeys() {
		op, _ := knowledge.Operation(key)
		fmt.Fprintf(w, "  %s\t%s\t\n", key, op.DefaultTool)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	if !kbLong {
		fmt.Println("\nRun 'processagent kb -l' for descriptions")
	}
	return nil
}

func resolveDrill(arg string) error {
	diameter, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return fmt.Errorf("invalid diameter %q: %w", arg, err)
	}

	key, tool, err := knowledge.ResolveDrillTool(diameter)
	if err != nil {
		return err
	}

	if tool.DiameterMM == nil {
		fmt.Printf("✓ %smm → %s\n", arg, key)
		return nil
	}
	fmt.Printf("✓ %smm → %s (Ø%smm)\n", arg, key, strconv.FormatFloat(*tool.DiameterMM, 'f', -1, 64))
	return nil
}
