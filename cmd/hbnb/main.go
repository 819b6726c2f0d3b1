// Package main provides the hbnb CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/matsen/hbnb/internal/config"
	"github.com/matsen/hbnb/internal/console"
	"github.com/matsen/hbnb/internal/schema"
	"github.com/matsen/hbnb/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
	filePath    string
	schemaPath  string

	settings *config.Settings
	logger   = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hbnb",
	Short: "Interactive console for hbnb records",
	Long: `hbnb is a command interpreter for creating, showing, updating and
destroying typed records (BaseModel, User, State, City, Amenity, Place,
Review). Every change is saved to a JSON file immediately.

Run without arguments to start the interactive console:
  (hbnb) create User
  (hbnb) User.update("<id>", "first_name", "Ana")
  (hbnb) all User

Type "help" at the prompt for the list of commands.`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runConsole,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&filePath, "file", "f", "", "Backing JSON file (default \"file.json\")")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "Schema YAML file replacing the built-in types")
	rootCmd.Version = Version
}

// setup resolves settings and builds the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	s, err := config.Resolve(config.Settings{FilePath: filePath, SchemaPath: schemaPath})
	if err != nil {
		exitWithError(ExitConfigError, "%s", configErrorMessage(err))
	}
	if verbose {
		s.LogLevel = "debug"
	}

	l, err := newLogger(s.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	settings, logger = s, l
	return nil
}

// configErrorMessage explains a config failure and where the file lives.
func configErrorMessage(err error) string {
	return fmt.Sprintf("loading config: %v\n\n%s", err, config.HelpfulConfigMessage())
}

// newLogger builds a production logger at the given level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// loadSchema returns the configured schema, or the built-in one.
func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return schema.Default(), nil
	}
	return schema.ParseFile(path)
}

// mustLoadSchema loads the configured schema, exits on error.
func mustLoadSchema() *schema.Schema {
	sch, err := loadSchema(settings.SchemaPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading schema: %v", err)
	}
	return sch
}

// mustOpenStore opens the backing file with the configured schema.
func mustOpenStore() *store.Store {
	return store.Open(settings.FilePath, mustLoadSchema(), store.WithLogger(logger))
}

func runConsole(cmd *cobra.Command, args []string) error {
	s := mustOpenStore()
	logger.Debug("console started", zap.String("file", s.Path()), zap.Int("records", s.Len()))

	d := console.NewDispatcher(s, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
	return console.New(d, cmd.OutOrStdout()).Run(cmd.InOrStdin())
}
