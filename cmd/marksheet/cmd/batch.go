package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeKo-Tech/marksheet/internal/batch"
	"github.com/MeKo-Tech/marksheet/internal/config"
	"github.com/spf13/cobra"
)

// batchCmd represents the batch command for parallel marksheet processing.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Process many marksheets in parallel and summarize the outcome",
	Long: `Process image and PDF marksheets with a pool of workers sharing one
pipeline, then report the status of each file and a summary with the
success rate and the board distribution.

Examples:
  marksheet batch scans/*.jpg
  marksheet batch scans/ --recursive --workers 8
  marksheet batch scans/ --include "*.pdf" --format json --output results.json
  marksheet batch sheets/ --mode college --expected-sem II --format csv`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addModeFlags(batchCmd)
	batchCmd.Flags().IntP("workers", "w", 1, "number of parallel workers (0 uses all CPUs)")
	batchCmd.Flags().BoolP("recursive", "r", false, "process directories recursively")
	batchCmd.Flags().StringSlice("include", nil, "include only files matching these glob patterns")
	batchCmd.Flags().StringSlice("exclude", nil, "skip files matching these glob patterns")
	batchCmd.Flags().StringP("format", "f", "text", "output format: text, json or csv")
	batchCmd.Flags().StringP("output", "o", "", "write results to this file instead of stdout")
	batchCmd.Flags().BoolP("quiet", "q", false, "suppress statistics")
}

// configToBatchConfig maps centralized configuration to batch.Config with
// CLI flag overrides.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) (batch.Config, error) {
	bc := cfg.ToBatchConfig()

	if cmd.Flags().Changed("workers") {
		bc.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("recursive") {
		bc.Recursive, _ = cmd.Flags().GetBool("recursive")
	}
	if cmd.Flags().Changed("include") {
		bc.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	}
	if cmd.Flags().Changed("exclude") {
		bc.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	}
	if cmd.Flags().Changed("format") {
		bc.Format, _ = cmd.Flags().GetString("format")
	}
	bc.OutputFile, _ = cmd.Flags().GetString("output")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")

	mode, expectedSem, err := modeFlags(cmd)
	if err != nil {
		return batch.Config{}, err
	}
	bc.Mode = mode
	bc.ExpectedSem = expectedSem

	switch bc.Format {
	case "text", "json", "csv":
	default:
		return batch.Config{}, fmt.Errorf("unsupported format %q: must be text, json or csv", bc.Format)
	}
	return bc, nil
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	bc, err := configToBatchConfig(cfg, cmd)
	if err != nil {
		return err
	}

	files, err := batch.DiscoverFiles(args, bc.Recursive, bc.IncludePatterns, bc.ExcludePatterns)
	if err != nil {
		return fmt.Errorf("failed to discover files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no image or PDF files found")
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := batch.ProcessBatch(ctx, p, files, bc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := res.SaveResults(out, bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return err
	}
	if !bc.Quiet && bc.OutputFile != "" {
		res.PrintStats(out)
	}
	return nil
}

// commandContext returns the command's context, or Background when it was
// executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
