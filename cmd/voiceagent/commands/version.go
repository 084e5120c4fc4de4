package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/voiceagent/cmd/voiceagent/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if formatOutput != "text" {
			return output(cmd.OutOrStdout(), build.Get())
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, build.String())
		if verbose {
			if cfg, err := GetConfig(); err == nil {
				fmt.Fprintf(out, "  config: %s\n", cfg.Dir)
			} else {
				fmt.Fprintf(out, "  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
