package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/logiclint/logiclint/internal/assets"
	"github.com/logiclint/logiclint/internal/config"
	"github.com/logiclint/logiclint/internal/review"
	"github.com/logiclint/logiclint/internal/runner"
)

var (
	configFile string
	modelName  string
	recursive  bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "logiclint [manuscript]",
	Short: "logiclint - logic consistency linter for manuscripts",
	Long: `logiclint checks manuscript files for internal logical consistency:
contradictions, timeline breaks, numeric drift, terminology shifts, broken
causality, and scope slips.

Each manuscript is split into budgeted units, every unit is evaluated by
the configured model against a fixed rubric, and validated findings are
written to a JSON report next to a full prompt audit trail.

Examples:
  logiclint draft/ch01.md
  logiclint draft/ --recursive
  logiclint draft/ --model gemini-2.5-flash`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runLint,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file: --config <path>")
	rootCmd.Flags().StringVar(&modelName, "model", "", "Override the configured model name")
	rootCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories of a manuscript directory")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists. It carries diagnostics knobs only; the
	// credential always comes from the configured secret file.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runLint(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	target := args[0]

	logger, err := buildLogger()
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Resolve(".", configFile)
	if err != nil {
		return err
	}
	if modelName != "" {
		switch cfg.Provider {
		case "openai":
			cfg.OpenAI.Model = modelName
		default:
			cfg.Gemini.Model = modelName
		}
	}

	rubric, err := assets.LoadRubric(cfg.RubricFile)
	if err != nil {
		return err
	}
	schema, err := assets.LoadSchema(cfg.SchemaFile)
	if err != nil {
		return err
	}

	cred, err := config.LoadCredential(cfg.CredentialPath("."))
	if err != nil {
		return err
	}

	llm, err := buildLLM(cfg, cred)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Warn("interrupt received, cancelling run")
		cancel()
	}()

	summary, err := runner.New(cfg, rubric, schema, llm, logger).Run(ctx, target, recursive)
	if err != nil {
		return err
	}

	printSummary(summary)

	if failed := summary.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(summary.Results))
	}
	return nil
}

func buildLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if level := os.Getenv("LOGICLINT_LOG"); level != "" {
		if parsed, err := zapcore.ParseLevel(level); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(parsed)
		}
	}
	return cfg.Build()
}

// buildLLM wires the active provider from config. The credential is handed
// to the client and nowhere else.
func buildLLM(cfg *config.Config, cred config.Credential) (review.LLM, error) {
	active := cfg.Active()
	llmCfg := review.DefaultLLMConfig()
	llmCfg.Model = active.Model
	llmCfg.BaseURL = active.BaseURL
	llmCfg.Timeout = cfg.Timeout()
	llmCfg.Credential = cred

	switch cfg.Provider {
	case "openai":
		return review.NewOpenAILLM(llmCfg)
	default:
		return review.NewGeminiLLM(llmCfg)
	}
}
