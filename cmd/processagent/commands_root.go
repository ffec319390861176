package main

import (
	"context"
	"fmt"

	"github.com/sourceplane/processagent/internal/config"
	"github.com/sourceplane/processagent/internal/kb"
	"github.com/sourceplane/processagent/internal/llm"
	"github.com/sourceplane/processagent/internal/loader"
	"github.com/sourceplane/processagent/internal/logging"
	"github.com/sourceplane/processagent/internal/metrics"
	"github.com/sourceplane/processagent/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	kbFile     string
	verbose    bool
	noLLM      bool
)

// Shared state populated by the root PersistentPreRunE
var (
	cfg       *config.Config
	logger    *zap.Logger
	specLoad  *loader.Loader
	knowledge *kb.KnowledgeBase
)

var rootCmd = &cobra.Command{
	Use:           "processagent",
	Short:         "Machining process planner: PartSpec → plan + pseudo G-code",
	Long:          "processagent turns a part description into a validated machining plan and a pseudo G-code program, using an LLM when available and a rule-based planner otherwise",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultPath, "Path to config file")
	rootCmd.PersistentFlags().StringVar(&kbFile, "kb", "", "Path to knowledge base document (default: bundled)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noLLM, "no-llm", false, "Disable the LLM strategy and plan with rules only")

	registerRunCommand(rootCmd)
	registerPlanCommand(rootCmd)
	registerValidateCommand(rootCmd)
	registerKBCommand(rootCmd)
	registerDebugCommand(rootCmd)
	registerServeCommand(rootCmd)
	registerConfigCommand(rootCmd)
}

func setup() error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}
	if kbFile != "" {
		cfg.KnowledgeBase.Path = kbFile
	}
	if noLLM {
		cfg.LLM.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err = logging.New(cfg.Logging, verbose)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	specLoad, err = loader.New()
	if err != nil {
		return fmt.Errorf("failed to initialize loader: %w", err)
	}

	knowledge, err = specLoad.LoadKnowledgeBase(cfg.KnowledgeBase.Path)
	if err != nil {
		return err
	}
	return nil
}

// newPipeline wires the knowledge base, the configured LLM and the recorder
func newPipeline(rec metrics.Recorder) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithRecorder(rec),
	}

	if cfg.LLMAvailable() {
		gen, err := llm.New(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to build LLM generator: %w", err)
		}
		opts = append(opts, pipeline.WithGenerator(gen), pipeline.WithTimeout(cfg.LLMTimeout()))
		logger.Debug("LLM strategy enabled",
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.ModelName()))
	} else {
		logger.Debug("LLM strategy disabled, using rule-based planning")
	}

	return pipeline.New(knowledge, opts...), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
