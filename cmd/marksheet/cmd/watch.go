package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeKo-Tech/marksheet/internal/pipeline"
	"github.com/MeKo-Tech/marksheet/internal/watch"
	"github.com/spf13/cobra"
)

// watchCmd processes marksheets as they are dropped into a directory.
var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Process marksheets as they appear in a directory",
	Long: `Watch a directory and run the pipeline on every image or PDF that is
created or rewritten in it. Each file is processed once its writes have
settled. Failures are logged and the watch continues until interrupted.

Examples:
  marksheet watch inbox/
  marksheet watch inbox/ --existing --settle 2s
  marksheet watch grade_sheets/ --mode college`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runWatchCommand,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addModeFlags(watchCmd)
	watchCmd.Flags().Bool("existing", false, "also process files already in the directory")
	watchCmd.Flags().Duration("settle", watch.DefaultSettle, "quiet period before a written file is processed")
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
	mode, expectedSem, err := modeFlags(cmd)
	if err != nil {
		return err
	}
	if info, err := os.Stat(args[0]); err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", args[0])
	}

	p, err := buildPipeline(GetConfig())
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	w := watch.New(args[0], watchHandler(p, mode, expectedSem))
	w.Existing, _ = cmd.Flags().GetBool("existing")
	w.Settle, _ = cmd.Flags().GetDuration("settle")

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Watching for marksheets", "dir", args[0], "mode", mode)
	return w.Run(ctx)
}

// watchHandler logs the outcome of every processed file.
func watchHandler(p *pipeline.Pipeline, mode, expectedSem string) watch.Handler {
	return func(ctx context.Context, path string) error {
		if mode == pipeline.ModeCollege {
			res, err := p.ProcessFixed(ctx, path, expectedSem)
			if err != nil {
				return err
			}
			slog.Info("Processed grade sheet", "file", path, "extracted", res.Data != nil, "results_file", res.ResultsFile)
			return nil
		}
		res, err := p.Process(ctx, path)
		if err != nil {
			return err
		}
		slog.Info("Processed marksheet", "file", path, "board", res.LogoDetection.BoardName,
			"overall_status", res.OverallStatus, "results_file", res.ResultsFile)
		return nil
	}
}
