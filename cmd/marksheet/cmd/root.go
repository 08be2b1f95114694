package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/marksheet/internal/config"
	"github.com/MeKo-Tech/marksheet/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
	// Log destination. Results go to stdout, so logs default to stderr.
	logOutput io.Writer = os.Stderr
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "marksheet",
	Short: "Extract structured student records from marksheet scans",
	Long: `marksheet reads scanned Indian school and college marksheets and turns
them into structured student records.

For every image or PDF it normalizes the page, identifies the issuing board
from its logo, checks for a student photo, locates the information and marks
tables, recognizes their text and parses it with the board's grammar.

Examples:
  marksheet process scan.jpg
  marksheet process grade_sheet.pdf --mode college --expected-sem IV
  marksheet batch scans/ --recursive --workers 4
  marksheet extract --info doc_info.txt --marks doc_marks.txt --board CBSE
  marksheet serve --port 8080`,
	Version:       version.String(),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

// ResetFlags restores every flag of the command tree to its default and
// drops the context of every command so that repeated in-process executions
// do not inherit earlier values.
func ResetFlags() {
	resetFlags(rootCmd)
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	// cobra only hands the root context to subcommands without one.
	c.SetContext(nil) //nolint:staticcheck // SA1012
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is marksheet.yaml in ., $XDG_CONFIG_HOME/marksheet, $HOME/.config/marksheet, /etc/marksheet)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("output-dir", "output", "artifact directory (empty disables artifacts)")
	rootCmd.PersistentFlags().String("backend", "whisperer", "text recognizer backend (whisperer, tesseract, none)")
	rootCmd.PersistentFlags().String("models-dir", "", "directory holding board_classifier.onnx, photo_detector.onnx and table_locator.onnx")
	rootCmd.PersistentFlags().String("board-model", "", "board classifier ONNX model")
	rootCmd.PersistentFlags().String("photo-model", "", "photo detector ONNX model")
	rootCmd.PersistentFlags().String("table-model", "", "table locator ONNX model")
	rootCmd.PersistentFlags().Bool("annotate", true, "write the annotated preview image")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"verbose":                          "verbose",
		"log_level":                        "log-level",
		"output.dir":                       "output-dir",
		"output.annotate":                  "annotate",
		"pipeline.recognizer.backend":      "backend",
		"pipeline.models.dir":              "models-dir",
		"pipeline.models.board_classifier": "board-model",
		"pipeline.models.photo_detector":   "photo-model",
		"pipeline.models.table_locator":    "table-model",
	} {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}

		var logLevel slog.Level
		if globalConfig.Verbose {
			logLevel = slog.LevelDebug
		} else {
			switch globalConfig.LogLevel {
			case "debug":
				logLevel = slog.LevelDebug
			case "warn":
				logLevel = slog.LevelWarn
			case "error":
				logLevel = slog.LevelError
			default:
				logLevel = slog.LevelInfo
			}
		}

		// Set up structured logging
		logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
		return nil
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	configLoader = config.NewLoader()

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	return nil
}

// GetConfig returns the global configuration.
func GetConfig() *config.Config {
	if globalConfig == nil {
		if err := initConfig(); err != nil {
			slog.Error("Falling back to default configuration", "error", err)
			d := config.DefaultConfig()
			return &d
		}
	}

	// Reload configuration to ensure CLI flags are included
	cfg, err := GetConfigLoader().Resolve()
	if err != nil {
		slog.Warn("Error resolving configuration", "error", err)
		return globalConfig
	}
	return cfg
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}

// SetLogOutput redirects the structured log of subsequent commands.
func SetLogOutput(w io.Writer) {
	logOutput = w
}
