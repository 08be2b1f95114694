package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/marksheet/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Info()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(cmd.OutOrStdout(), info)
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "marksheet version %s\n", info.Version)
		_, _ = fmt.Fprintf(out, "Commit: %s\n", info.GitCommit)
		_, _ = fmt.Fprintf(out, "Built: %s\n", info.BuildDate)
		_, _ = fmt.Fprintf(out, "Go: %s (%s)\n", info.GoVersion, info.Platform)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("json", false, "print as JSON")
}
