package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/MeKo-Tech/marksheet/internal/config"
	"github.com/MeKo-Tech/marksheet/internal/pipeline"
	"github.com/spf13/cobra"
)

// buildPipeline initializes a pipeline from the effective configuration.
// Capabilities whose models or credentials are missing load as unavailable.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	p, err := pipeline.NewBuilder().WithConfig(cfg.ToPipelineConfig()).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	return p, nil
}

// addModeFlags registers the processing mode flags shared by process, batch
// and watch.
func addModeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("mode", "m", pipeline.ModeSchool, "processing mode: school (detected tables) or college (fixed layout)")
	cmd.Flags().String("expected-sem", "", "college mode: reject grade sheets of another semester")
}

func modeFlags(cmd *cobra.Command) (mode, expectedSem string, err error) {
	mode, _ = cmd.Flags().GetString("mode")
	expectedSem, _ = cmd.Flags().GetString("expected-sem")
	if mode != pipeline.ModeSchool && mode != pipeline.ModeCollege {
		return "", "", fmt.Errorf("invalid mode %q: must be %s or %s", mode, pipeline.ModeSchool, pipeline.ModeCollege)
	}
	return mode, expectedSem, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
