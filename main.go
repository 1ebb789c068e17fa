package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-server/config"
	"quiz-server/ingestion"
	"quiz-server/logging"
	"quiz-server/quiz"
	"quiz-server/sampler"
	"quiz-server/store"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "quiz",
	Short: "True/false quiz server backed by flat delimited files",
	Long: `quiz samples a balanced working set of true/false questions from one
source file per subject, serves it over HTTP and records answers in a
single delimited file next to the subjects.

Run without arguments to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Log.Development)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

// app bundles the components every command works against.
type app struct {
	store   *store.Store
	loader  *ingestion.Loader
	service *quiz.Service
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	st, err := store.New(cfg.Store.Path, cfg.Subjects.Delimiter, logger.Named("store"))
	if err != nil {
		return nil, err
	}
	// The store and its state file may live in the subjects directory and
	// must never be read back as subjects.
	loader := ingestion.NewLoader(cfg.Subjects.Dir, cfg.Subjects.Extension, cfg.Subjects.Delimiter,
		logger.Named("ingestion"), st.Path(), st.StatePath())
	svc := quiz.NewService(loader, sampler.New(nil), st, logger.Named("quiz"))
	return &app{store: st, loader: loader, service: svc}, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, resampleCmd, resetWrongCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
