package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/marksheet/internal/extract"
	"github.com/MeKo-Tech/marksheet/internal/pipeline"
	"github.com/spf13/cobra"
)

// processCmd runs the pipeline on a single marksheet.
var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Extract the student record from one marksheet image or PDF",
	Long: `Run the full pipeline on one marksheet and print the result.

In school mode the page is normalized, the board and tables are detected and
the tables' text is parsed with the board's grammar. In college mode the
information and marks regions are read from the fixed grade sheet layout.

Examples:
  marksheet process scan.jpg
  marksheet process scan.png --format text
  marksheet process grade_sheet.pdf --mode college --expected-sem IV`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runProcessCommand,
}

func init() {
	rootCmd.AddCommand(processCmd)
	addModeFlags(processCmd)
	processCmd.Flags().StringP("format", "f", "json", "output format: json or text")
}

func runProcessCommand(cmd *cobra.Command, args []string) error {
	mode, expectedSem, err := modeFlags(cmd)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format != "json" && format != "text" {
		return fmt.Errorf("unsupported format %q: must be json or text", format)
	}

	p, err := buildPipeline(GetConfig())
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	out := cmd.OutOrStdout()
	slog.Debug("Processing marksheet", "file", args[0], "mode", mode)

	if mode == pipeline.ModeCollege {
		res, err := p.ProcessFixed(commandContext(cmd), args[0], expectedSem)
		if err != nil {
			return err
		}
		if format == "json" {
			return writeJSON(out, res)
		}
		status := pipeline.StatusValid
		if res.Data == nil {
			status = pipeline.StatusPartialMatch
		}
		printRecord(out, args[0], res.Board, status, res.Data, res.ResultsFile)
		return nil
	}

	res, err := p.Process(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(out, res)
	}
	printRecord(out, args[0], res.LogoDetection.BoardName, res.OverallStatus, res.Extraction.Data, res.ResultsFile)
	return nil
}

func printRecord(w io.Writer, file, board, status string, rec *extract.StudentRecord, resultsFile string) {
	_, _ = fmt.Fprintf(w, "File:     %s\n", file)
	_, _ = fmt.Fprintf(w, "Board:    %s\n", board)
	_, _ = fmt.Fprintf(w, "Status:   %s\n", status)
	if rec != nil {
		if rec.StudentName != nil {
			_, _ = fmt.Fprintf(w, "Student:  %s\n", *rec.StudentName)
		}
		if rec.RollNumber != nil {
			_, _ = fmt.Fprintf(w, "Roll no:  %s\n", *rec.RollNumber)
		}
		_, _ = fmt.Fprintf(w, "Subjects: %d\n", len(rec.Subjects))
		for _, s := range rec.Subjects {
			_, _ = fmt.Fprintf(w, "  - %s\n", s.Name)
		}
	}
	if resultsFile != "" {
		_, _ = fmt.Fprintf(w, "Results:  %s\n", resultsFile)
	}
}
