package cmd

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/marksheet/internal/detect"
	"github.com/MeKo-Tech/marksheet/internal/extract"
	"github.com/MeKo-Tech/marksheet/internal/pipeline"
	"github.com/MeKo-Tech/marksheet/internal/recognizer"
	"github.com/spf13/cobra"
)

// extractCmd re-runs only the board grammar over recognized text files.
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Re-extract a student record from recognized table text",
	Long: `Parse previously recognized information and marks table text with a
board grammar and print the student record as JSON. No images are read and
no models are loaded.

Supported boards: CBSE, ICSE, UTTARAKHAND, COLLEGE.

Examples:
  marksheet extract --info output/ocr/scan_info.txt --marks output/ocr/scan_marks.txt --board CBSE
  marksheet extract --marks grade_marks.txt --board college --save`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runExtractCommand,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().String("info", "", "information table text file")
	extractCmd.Flags().String("marks", "", "marks table text file")
	extractCmd.Flags().StringP("board", "b", "", "board grammar to apply")
	extractCmd.Flags().Bool("save", false, "also write the record to the processed artifacts")
	_ = extractCmd.MarkFlagRequired("board")
}

func runExtractCommand(cmd *cobra.Command, args []string) error {
	info, _ := cmd.Flags().GetString("info")
	marks, _ := cmd.Flags().GetString("marks")
	board, _ := cmd.Flags().GetString("board")
	save, _ := cmd.Flags().GetBool("save")

	if _, ok := extract.NormalizeBoard(board); !ok {
		return fmt.Errorf("%w: %q (supported: %s)", pipeline.ErrUnknownBoard, board, extract.SupportedBoards())
	}

	if !save {
		rec, err := pipeline.Reextract(info, marks, board)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), rec)
	}

	// Saving needs the artifact store only, so no capability is loaded.
	p, err := pipeline.NewBuilder().
		WithConfig(GetConfig().ToPipelineConfig()).
		WithCapabilities(&detect.Capabilities{}).
		WithRecognizerInstance(recognizer.Unavailable{}).
		Build()
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	rec, path, err := p.Reextract(info, marks, board)
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New("record was extracted but could not be saved")
	}
	if err := writeJSON(cmd.OutOrStdout(), rec); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Record written to %s\n", path)
	return nil
}
