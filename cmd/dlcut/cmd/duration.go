package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/dlcut/pkg/format"
)

var durationCmd = &cobra.Command{
	Use:   "duration <file>",
	Short: "Print the length of a local media file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, cmdLogger())
		if err != nil {
			return err
		}

		d, err := a.downloads.ProbeDuration(cmd.Context(), args[0])
		if err != nil {
			return cliError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%.3fs)\n", format.Clock(d), d)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(durationCmd)
}
